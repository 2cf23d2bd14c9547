// File: internal/browser/executor.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
)

// Selectors for the X web UI. The data-testid attributes are the most stable
// hooks the client exposes.
const (
	selLikeButton     = `button[data-testid="like"]`
	selRepostButton   = `button[data-testid="retweet"]`
	selRepostConfirm  = `div[data-testid="retweetConfirm"]`
	selQuoteOption    = `a[href="/compose/post"]`
	selComposeBox     = `div[data-testid="tweetTextarea_0"]`
	selReplySubmit    = `button[data-testid="tweetButtonInline"]`
	selComposeSubmit  = `button[data-testid="tweetButton"]`
	selLoginUserField = `input[autocomplete="username"]`
)

const loginProbeTimeout = 3 * time.Second

// XExecutor performs actions against the X web UI through a Surface.
type XExecutor struct {
	surf    schemas.Surface
	baseURL string
	timeout time.Duration
	log     *zap.Logger
}

// NewExecutor builds an executor bound to one account's surface.
func NewExecutor(surf schemas.Surface, baseURL string, actionTimeout time.Duration, logger *zap.Logger) *XExecutor {
	return &XExecutor{
		surf:    surf,
		baseURL: baseURL,
		timeout: actionTimeout,
		log:     logger.Named("executor"),
	}
}

// Execute performs the command. It never panics; every failure is reported
// through the outcome so the caller can decide between retry and giving up.
func (e *XExecutor) Execute(ctx context.Context, cmd schemas.ActionCommand) schemas.ActionOutcome {
	actCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var err error
	switch cmd.Type {
	case schemas.ActionLike:
		err = e.like(actCtx, cmd.CandidateID)
	case schemas.ActionRepost:
		err = e.repost(actCtx, cmd.CandidateID)
	case schemas.ActionReply:
		err = e.reply(actCtx, cmd.CandidateID, cmd.Text)
	case schemas.ActionQuote:
		err = e.quote(actCtx, cmd.CandidateID, cmd.Text)
	case schemas.ActionPost:
		err = e.post(actCtx, cmd.Text)
	default:
		return schemas.ActionOutcome{
			Reason: fmt.Sprintf("unsupported action type %q", cmd.Type),
		}
	}

	if err == nil {
		e.log.Info("Action executed",
			zap.String("type", string(cmd.Type)),
			zap.String("candidate_id", cmd.CandidateID))
		return schemas.ActionOutcome{Executed: true}
	}

	// A visible login form means the auth token was rejected; nothing this
	// session does can recover from that.
	if e.loggedOut(ctx) {
		return schemas.ActionOutcome{
			Reason:         fmt.Sprintf("session invalid: %v", err),
			SessionInvalid: true,
		}
	}

	return schemas.ActionOutcome{
		Reason:    err.Error(),
		Transient: transient(err),
	}
}

// transient marks failures worth a retry. Timeouts and cancellations come
// from slow pages or stale DOM; a fresh attempt often succeeds.
func transient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// loggedOut probes for the login form with a short deadline.
func (e *XExecutor) loggedOut(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, loginProbeTimeout)
	defer cancel()
	return e.surf.LocateElement(probeCtx, selLoginUserField) == nil
}

// statusURL builds the permalink for a candidate post.
func (e *XExecutor) statusURL(candidateID string) string {
	return fmt.Sprintf("%s/i/web/status/%s", e.baseURL, candidateID)
}

func (e *XExecutor) like(ctx context.Context, candidateID string) error {
	if err := e.surf.Navigate(ctx, e.statusURL(candidateID)); err != nil {
		return err
	}
	return e.surf.Click(ctx, selLikeButton)
}

func (e *XExecutor) repost(ctx context.Context, candidateID string) error {
	if err := e.surf.Navigate(ctx, e.statusURL(candidateID)); err != nil {
		return err
	}
	if err := e.surf.Click(ctx, selRepostButton); err != nil {
		return err
	}
	return e.surf.Click(ctx, selRepostConfirm)
}

func (e *XExecutor) reply(ctx context.Context, candidateID, text string) error {
	if err := e.surf.Navigate(ctx, e.statusURL(candidateID)); err != nil {
		return err
	}
	if err := e.surf.Type(ctx, selComposeBox, text); err != nil {
		return err
	}
	return e.surf.Click(ctx, selReplySubmit)
}

func (e *XExecutor) quote(ctx context.Context, candidateID, text string) error {
	if err := e.surf.Navigate(ctx, e.statusURL(candidateID)); err != nil {
		return err
	}
	// The repost button opens a menu with "Repost" and "Quote".
	if err := e.surf.Click(ctx, selRepostButton); err != nil {
		return err
	}
	if err := e.surf.Click(ctx, selQuoteOption); err != nil {
		return err
	}
	if err := e.surf.Type(ctx, selComposeBox, text); err != nil {
		return err
	}
	return e.surf.Click(ctx, selComposeSubmit)
}

func (e *XExecutor) post(ctx context.Context, text string) error {
	if err := e.surf.Navigate(ctx, e.baseURL+"/compose/post"); err != nil {
		return err
	}
	if err := e.surf.Type(ctx, selComposeBox, text); err != nil {
		return err
	}
	return e.surf.Click(ctx, selComposeSubmit)
}
