package schemas

import "time"

// ActionType identifies one of the account actions the simulator can take
// against a candidate post.
type ActionType string

const (
	ActionLike   ActionType = "LIKE"
	ActionRepost ActionType = "REPOST"
	ActionReply  ActionType = "REPLY"
	ActionQuote  ActionType = "QUOTE"
	ActionPost   ActionType = "POST"
)

// ActionTypes lists every action type in decision priority order:
// content-bearing interactions first, passive interactions last. The decision
// engine selects the highest-priority eligible action for a candidate.
var ActionTypes = []ActionType{ActionReply, ActionQuote, ActionRepost, ActionLike}

// RequiresContent reports whether the action type needs generated text before
// it can be executed.
func (a ActionType) RequiresContent() bool {
	switch a {
	case ActionReply, ActionQuote, ActionPost:
		return true
	default:
		return false
	}
}

// Intent describes what kind of content the generator should produce.
type Intent string

const (
	IntentPost  Intent = "post"
	IntentReply Intent = "reply"
	IntentQuote Intent = "quote"
)

// IntentFor maps a content-bearing action type to its generation intent.
func IntentFor(a ActionType) Intent {
	switch a {
	case ActionQuote:
		return IntentQuote
	case ActionPost:
		return IntentPost
	default:
		return IntentReply
	}
}

// Engagement carries the public engagement counters observed on a candidate.
type Engagement struct {
	Likes   int64 `json:"likes"`
	Reposts int64 `json:"reposts"`
	Replies int64 `json:"replies"`
}

// Candidate is a single observed post that may receive at most one action per
// tick. Candidates are produced by a Feed and are immutable once observed.
type Candidate struct {
	ID         string     `json:"id"`
	Author     string     `json:"author"`
	Text       string     `json:"text"`
	Engagement Engagement `json:"engagement"`
	ObservedAt time.Time  `json:"observed_at"`
}

// Decision is the output of one candidate evaluation. The zero value means
// "no action this tick".
type Decision struct {
	Type      ActionType `json:"type"`
	Candidate Candidate  `json:"candidate"`
	// Text is populated by the orchestrator for content-bearing actions
	// after generation succeeds; the decision engine never fills it.
	Text string `json:"text,omitempty"`
}

// IsNoAction reports whether the decision carries no action.
func (d Decision) IsNoAction() bool { return d.Type == "" }

// ActionCommand is the instruction handed to an ActionExecutor.
type ActionCommand struct {
	Type        ActionType `json:"type"`
	CandidateID string     `json:"candidate_id"`
	Text        string     `json:"text,omitempty"`
}

// ActionOutcome reports the result of executing an ActionCommand.
type ActionOutcome struct {
	Executed bool   `json:"executed"`
	Reason   string `json:"reason,omitempty"`
	// Transient marks failures worth retrying (network hiccups, stale DOM).
	Transient bool `json:"transient,omitempty"`
	// SessionInvalid marks a rejected authentication token. The account
	// loop treats this as fatal.
	SessionInvalid bool `json:"session_invalid,omitempty"`
}

// GenerationRequest is the input to a ContentGenerator.
type GenerationRequest struct {
	// Context is the source text the generated content should respond to,
	// typically the candidate's body text.
	Context string `json:"context"`
	Intent  Intent `json:"intent"`
}

// SessionSnapshot is the persisted form of an account session: the opaque
// authentication token plus cumulative counters. The simulator core treats
// everything here as opaque beyond the token string and counter values.
type SessionSnapshot struct {
	AccountID string           `json:"account_id"`
	AuthToken string           `json:"auth_token"`
	Counters  map[string]int64 `json:"counters"`
	SavedAt   time.Time        `json:"saved_at"`
}
