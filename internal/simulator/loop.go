// File: internal/simulator/loop.go
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xKony/x-automate/api/schemas"
)

// idlePause is the base wait between ticks when a tick produced nothing,
// so an empty feed does not turn into a busy loop.
const idlePause = 2 * time.Second

// maxConsecutiveFeedFailures bounds how often the feed may fail in a row
// before the account loop gives up instead of hammering a broken source.
const maxConsecutiveFeedFailures = 5

// Runner drives one account: a strictly sequential decision loop where each
// candidate is evaluated, decided and executed to completion before the next
// one is considered. Overlapping actions would defeat the rate gate's
// invariants, so there is deliberately no concurrency inside a single account.
type Runner struct {
	policy *BehaviorPolicy
	engine *Engine
	orch   *Orchestrator
	feed   schemas.Feed
	store  schemas.SessionStore
	sess   *AccountSession

	clock   Clock
	sleeper Sleeper
	rng     Rand
	logger  *zap.Logger

	// processed remembers candidate IDs already evaluated this session so
	// the same post is never acted on twice (or re-rolled until it "hits").
	processed map[string]struct{}
}

// NewRunner assembles the account loop.
func NewRunner(
	policy *BehaviorPolicy,
	engine *Engine,
	orch *Orchestrator,
	feed schemas.Feed,
	store schemas.SessionStore,
	sess *AccountSession,
	clock Clock,
	sleeper Sleeper,
	rng Rand,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		policy:    policy,
		engine:    engine,
		orch:      orch,
		feed:      feed,
		store:     store,
		sess:      sess,
		clock:     clock,
		sleeper:   sleeper,
		rng:       rng,
		logger:    logger.Named("runner").With(zap.String("account_id", sess.AccountID())),
		processed: make(map[string]struct{}),
	}
}

// Run executes ticks until the context is cancelled, the per-run action
// budget is reached, or the session turns fatally invalid. Per-tick failures
// (generation, execution) never abort the loop. The session snapshot is
// persisted on the way out regardless of how the loop ends.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Account loop starting",
		zap.Int("max_actions", r.policy.MaxActions),
		zap.Duration("min_action_gap", r.policy.MinActionGap))

	defer r.persist()

	actionsDone := 0
	feedFailures := 0

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("Account loop stopping", zap.Error(err))
			return nil
		}
		if actionsDone >= r.policy.MaxActions {
			r.logger.Info("Action budget reached, stopping", zap.Int("actions", actionsDone))
			return nil
		}

		candidates, err := r.feed.Next(ctx, r.policy.TickBatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			feedFailures++
			r.logger.Warn("Feed fetch failed",
				zap.Int("consecutive_failures", feedFailures),
				zap.Error(err))
			if feedFailures >= maxConsecutiveFeedFailures {
				return fmt.Errorf("feed failed %d times in a row: %w", feedFailures, err)
			}
			if err := r.sleeper.Sleep(ctx, idlePause); err != nil {
				return nil
			}
			continue
		}
		feedFailures = 0

		performed, err := r.runTick(ctx, candidates, &actionsDone)
		if err != nil {
			if errors.Is(err, ErrSessionInvalid) {
				r.logger.Error("Session invalid, stopping account loop", zap.Error(err))
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !performed {
			// Nothing happened this tick; idle briefly before the next
			// batch so the loop breathes like a reader, not a poller.
			if err := r.sleeper.Sleep(ctx, r.jitter(idlePause, idlePause*2)); err != nil {
				return nil
			}
		}
	}
}

// runTick evaluates one batch of candidates plus the per-tick original-post
// draw. It reports whether any action was executed.
func (r *Runner) runTick(ctx context.Context, candidates []schemas.Candidate, actionsDone *int) (bool, error) {
	performed := false

	for _, c := range candidates {
		// Cancellation is honored between candidates, never mid-action:
		// the orchestrator's steps are the unit of atomicity.
		if ctx.Err() != nil {
			return performed, nil
		}
		if *actionsDone >= r.policy.MaxActions {
			return performed, nil
		}
		if _, seen := r.processed[c.ID]; seen {
			continue
		}
		r.processed[c.ID] = struct{}{}

		decision := r.engine.Evaluate(c, r.sess, r.clock.Now())
		if decision.IsNoAction() {
			continue
		}

		outcome, err := r.orch.Apply(ctx, r.sess, decision)
		if err != nil {
			return performed, err
		}
		if outcome.Executed {
			performed = true
			*actionsDone++
			if err := r.cooldown(ctx); err != nil {
				return performed, nil
			}
		}
	}

	if ctx.Err() != nil || *actionsDone >= r.policy.MaxActions {
		return performed, nil
	}

	// One original-post draw per tick, independent of any candidate.
	if decision := r.engine.EvaluatePost(r.sess, r.clock.Now()); !decision.IsNoAction() {
		outcome, err := r.orch.Apply(ctx, r.sess, decision)
		if err != nil {
			return performed, err
		}
		if outcome.Executed {
			performed = true
			*actionsDone++
			if err := r.cooldown(ctx); err != nil {
				return performed, nil
			}
		}
	}

	return performed, nil
}

// cooldown pauses after a successful action. The wait always covers the
// policy's minimum action gap and adds randomized slack on top, so issuance
// never forms a metronome pattern.
func (r *Runner) cooldown(ctx context.Context) error {
	d := r.jitter(r.policy.CooldownMin, r.policy.CooldownMax)
	if d < r.policy.MinActionGap {
		d = r.policy.MinActionGap
	}
	r.logger.Debug("Cooling down", zap.Duration("duration", d))
	return r.sleeper.Sleep(ctx, d)
}

// jitter returns a uniform duration in [min, max].
func (r *Runner) jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.rng.Float64()*float64(max-min))
}

// persist saves the session snapshot. It runs during shutdown, so it uses its
// own bounded context rather than the (likely cancelled) loop context.
func (r *Runner) persist() {
	snap := r.sess.Snapshot()
	snap.SavedAt = r.clock.Now()

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.Save(saveCtx, snap); err != nil {
		r.logger.Error("Failed to persist session snapshot", zap.Error(err))
		return
	}
	r.logger.Info("Session snapshot persisted")
}

// RunAll runs one Runner per account as fully independent workers. Accounts
// share no mutable state, so the only coordination is waiting for all of them
// to finish; one account's fatal session error does not stop its siblings.
func RunAll(ctx context.Context, runners []*Runner) error {
	var g errgroup.Group
	for _, r := range runners {
		g.Go(func() error {
			return r.Run(ctx)
		})
	}
	return g.Wait()
}
