// File: internal/simulator/orchestrator.go
package simulator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
)

// Orchestrator turns a selected Decision into a completed ActionOutcome and
// updates session state. It owns the only side effects in the core: one
// generation call when content is needed, one execution attempt (plus at most
// one retry), and the session mutation on confirmed success.
type Orchestrator struct {
	policy    *BehaviorPolicy
	gate      *Gate
	generator schemas.ContentGenerator
	executor  schemas.ActionExecutor
	clock     Clock
	sleeper   Sleeper
	logger    *zap.Logger

	genTimeout   time.Duration
	execTimeout  time.Duration
	retryBackoff time.Duration
}

// OrchestratorOptions bundles the timeouts bounding the two blocking calls.
type OrchestratorOptions struct {
	GenerationTimeout time.Duration
	ExecutionTimeout  time.Duration
	RetryBackoff      time.Duration
}

// NewOrchestrator wires the execution stage of the pipeline.
func NewOrchestrator(
	policy *BehaviorPolicy,
	gate *Gate,
	generator schemas.ContentGenerator,
	executor schemas.ActionExecutor,
	clock Clock,
	sleeper Sleeper,
	logger *zap.Logger,
	opts OrchestratorOptions,
) *Orchestrator {
	return &Orchestrator{
		policy:       policy,
		gate:         gate,
		generator:    generator,
		executor:     executor,
		clock:        clock,
		sleeper:      sleeper,
		logger:       logger.Named("orchestrator"),
		genTimeout:   opts.GenerationTimeout,
		execTimeout:  opts.ExecutionTimeout,
		retryBackoff: opts.RetryBackoff,
	}
}

// Apply executes a decision to completion. The returned outcome's Executed
// flag says whether the action actually happened; session counters mutate
// only in that case.
//
// Generation failures degrade the tick to no action and are never fatal; a
// fresh candidate on a future tick is the retry. Execution failures get one
// retry with backoff when transient, then are reported without touching the
// counters. A rejected session surfaces as ErrSessionInvalid so the account
// loop can stop.
func (o *Orchestrator) Apply(ctx context.Context, sess *AccountSession, d schemas.Decision) (schemas.ActionOutcome, error) {
	if d.IsNoAction() {
		return schemas.ActionOutcome{Executed: false, Reason: "no action"}, nil
	}

	log := o.logger.With(
		zap.String("account_id", sess.AccountID()),
		zap.String("action", string(d.Type)),
		zap.String("candidate_id", d.Candidate.ID),
	)

	if d.Type.RequiresContent() {
		text, err := o.generate(ctx, d)
		if err != nil {
			// Recovered: the tick is skipped, the executor is never called.
			log.Warn("Content generation failed, skipping tick", zap.Error(err))
			return schemas.ActionOutcome{Executed: false, Reason: "generation failed: " + err.Error()}, nil
		}
		if ok, reason := o.gate.PermitContent(sess, text); !ok {
			log.Info("Generated content blocked by reuse guard", zap.String("reason", reason))
			return schemas.ActionOutcome{Executed: false, Reason: reason}, nil
		}
		d.Text = text
	}

	cmd := schemas.ActionCommand{
		Type:        d.Type,
		CandidateID: d.Candidate.ID,
		Text:        d.Text,
	}

	outcome := o.execute(ctx, cmd)
	if outcome.SessionInvalid {
		log.Error("Session rejected by platform", zap.String("reason", outcome.Reason))
		return outcome, ErrSessionInvalid
	}
	if outcome.Transient {
		log.Warn("Transient execution failure, retrying once",
			zap.String("reason", outcome.Reason),
			zap.Duration("backoff", o.retryBackoff))
		if err := o.sleeper.Sleep(ctx, o.retryBackoff); err != nil {
			return outcome, err
		}
		outcome = o.execute(ctx, cmd)
		if outcome.SessionInvalid {
			log.Error("Session rejected by platform on retry", zap.String("reason", outcome.Reason))
			return outcome, ErrSessionInvalid
		}
	}
	if !outcome.Executed {
		// Reported, not fatal. The action did not occur so the counters
		// stay untouched.
		log.Warn("Action execution failed", zap.String("reason", outcome.Reason))
		return outcome, nil
	}

	fingerprint := ""
	if d.Type.RequiresContent() {
		fingerprint = Fingerprint(d.Text)
	}
	sess.RecordSuccess(d.Type, fingerprint, o.clock.Now(), o.policy.WidestWindow())

	log.Info("Action executed",
		zap.Int64("total_of_type", sess.Counter(d.Type)),
		zap.Int64("total_actions", sess.TotalActions()))
	return outcome, nil
}

func (o *Orchestrator) generate(ctx context.Context, d schemas.Decision) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
	defer cancel()

	text, err := o.generator.Generate(genCtx, schemas.GenerationRequest{
		Context: d.Candidate.Text,
		Intent:  schemas.IntentFor(d.Type),
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (o *Orchestrator) execute(ctx context.Context, cmd schemas.ActionCommand) schemas.ActionOutcome {
	execCtx, cancel := context.WithTimeout(ctx, o.execTimeout)
	defer cancel()
	return o.executor.Execute(execCtx, cmd)
}
