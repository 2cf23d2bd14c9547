package schemas

import "context"

// -- External Collaborator Interfaces --
//
// The simulator core depends only on these contracts. Concrete
// implementations (LLM clients, chromedp-backed executors, live feeds) live
// in their own packages and are injected at the composition root.

// ContentGenerator produces text for content-bearing actions. Implementations
// are expected to respect the context deadline; a timeout is a normal,
// recoverable failure for the caller.
type ContentGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ActionExecutor performs a single action against the live page or session.
// Execute never panics; failures are reported through the outcome so the
// orchestrator can decide between retry and giving up.
type ActionExecutor interface {
	Execute(ctx context.Context, cmd ActionCommand) ActionOutcome
}

// Feed supplies batches of candidate posts. It is lazy and restartable: a
// batch may be empty, and the next call may surface fresh content. The
// consumer never mutates what it is given.
type Feed interface {
	Next(ctx context.Context, limit int) ([]Candidate, error)
}

// SessionStore loads and saves account session snapshots. The format is
// opaque to callers; saving an unmodified loaded snapshot must produce
// byte-identical output.
type SessionStore interface {
	Load(ctx context.Context, accountID string) (*SessionSnapshot, error)
	Save(ctx context.Context, snap *SessionSnapshot) error
}

// Surface is the capability interface over a concrete target site. One
// implementation exists per surface (e.g. the X web UI); everything above it
// depends only on these primitives.
type Surface interface {
	// Navigate loads the given URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// LocateElement waits until the selector matches a visible element.
	LocateElement(ctx context.Context, selector string) error
	// Click clicks the first visible element matching the selector.
	Click(ctx context.Context, selector string) error
	// ExtractText returns the inner text of the first matching element.
	ExtractText(ctx context.Context, selector string) (string, error)
	// Type focuses the selector and types the text with human pacing.
	Type(ctx context.Context, selector, text string) error
}
