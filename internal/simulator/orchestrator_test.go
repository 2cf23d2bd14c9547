// File: internal/simulator/orchestrator_test.go
package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xKony/x-automate/api/schemas"
)

func newTestOrchestrator(t *testing.T, gen schemas.ContentGenerator, exec schemas.ActionExecutor, clock *fakeClock) (*Orchestrator, *fakeSleeper) {
	t.Helper()
	policy := mustPolicy(t, testBehaviorConfig())
	sleeper := &fakeSleeper{clock: clock}
	orch := NewOrchestrator(policy, NewGate(policy), gen, exec, clock, sleeper, testLogger,
		OrchestratorOptions{
			GenerationTimeout: 50 * time.Millisecond,
			ExecutionTimeout:  time.Second,
			RetryBackoff:      5 * time.Second,
		})
	return orch, sleeper
}

func likeDecision() schemas.Decision {
	return schemas.Decision{Type: schemas.ActionLike, Candidate: candidate("c1", "a candidate post worth acting on")}
}

func replyDecision() schemas.Decision {
	return schemas.Decision{Type: schemas.ActionReply, Candidate: candidate("c1", "a candidate post worth acting on")}
}

func TestOrchestrator_NoActionIsANoOp(t *testing.T) {
	exec := &fakeExecutor{}
	orch, _ := newTestOrchestrator(t, &fakeGenerator{}, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, schemas.Decision{})
	require.NoError(t, err)
	assert.False(t, out.Executed)
	assert.Empty(t, exec.calls)
}

func TestOrchestrator_SuccessRecordsSession(t *testing.T) {
	clock := newFakeClock(t0)
	gen := &fakeGenerator{text: "a generated reply"}
	exec := &fakeExecutor{}
	orch, _ := newTestOrchestrator(t, gen, exec, clock)
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, replyDecision())
	require.NoError(t, err)
	assert.True(t, out.Executed)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, schemas.ActionReply, exec.calls[0].Type)
	assert.Equal(t, "a generated reply", exec.calls[0].Text)
	assert.Equal(t, schemas.IntentReply, gen.lastReq.Intent)

	assert.Equal(t, int64(1), sess.Counter(schemas.ActionReply))
	assert.Equal(t, 1, sess.FingerprintUses(Fingerprint("a generated reply")))
	assert.Equal(t, t0, sess.LastActionAt())
}

func TestOrchestrator_LikeSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{text: "should never be asked"}
	exec := &fakeExecutor{}
	orch, _ := newTestOrchestrator(t, gen, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, likeDecision())
	require.NoError(t, err)
	assert.True(t, out.Executed)
	assert.Zero(t, gen.calls)
	assert.Zero(t, sess.FingerprintUses(Fingerprint("should never be asked")))
}

func TestOrchestrator_GenerationFailureIsRecovered(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	exec := &fakeExecutor{}
	orch, _ := newTestOrchestrator(t, gen, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, replyDecision())
	require.NoError(t, err, "a failed generation degrades to no action, never an error")
	assert.False(t, out.Executed)
	assert.Contains(t, out.Reason, "generation failed")
	assert.Empty(t, exec.calls, "the executor must never see a decision without content")
	assert.Zero(t, sess.TotalActions())
}

func TestOrchestrator_GenerationTimeoutIsRecovered(t *testing.T) {
	// The generator hangs; the per-call deadline fires and the tick degrades
	// to no action without touching the executor.
	gen := &fakeGenerator{block: true}
	exec := &fakeExecutor{}
	orch, _ := newTestOrchestrator(t, gen, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, replyDecision())
	require.NoError(t, err)
	assert.False(t, out.Executed)
	assert.Empty(t, exec.calls)
}

func TestOrchestrator_GeneratedDuplicateIsBlocked(t *testing.T) {
	gen := &fakeGenerator{text: "the same take again"}
	exec := &fakeExecutor{}
	orch, _ := newTestOrchestrator(t, gen, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")
	sess.RecordSuccess(schemas.ActionReply, Fingerprint("the same take again"), t0.Add(-time.Hour), time.Hour)

	out, err := orch.Apply(context.Background(), sess, replyDecision())
	require.NoError(t, err)
	assert.False(t, out.Executed)
	assert.Empty(t, exec.calls)
}

func TestOrchestrator_TransientFailureRetriesOnce(t *testing.T) {
	clock := newFakeClock(t0)
	exec := &fakeExecutor{outcomes: []schemas.ActionOutcome{
		{Executed: false, Reason: "stale DOM", Transient: true},
		{Executed: true},
	}}
	orch, sleeper := newTestOrchestrator(t, &fakeGenerator{}, exec, clock)
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, likeDecision())
	require.NoError(t, err)
	assert.True(t, out.Executed)
	assert.Len(t, exec.calls, 2)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.slept, "backoff before the single retry")
	assert.Equal(t, int64(1), sess.Counter(schemas.ActionLike))
}

func TestOrchestrator_RetryFailureIsReportedNotFatal(t *testing.T) {
	exec := &fakeExecutor{outcomes: []schemas.ActionOutcome{
		{Executed: false, Reason: "stale DOM", Transient: true},
		{Executed: false, Reason: "still broken", Transient: true},
	}}
	orch, _ := newTestOrchestrator(t, &fakeGenerator{}, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")

	out, err := orch.Apply(context.Background(), sess, likeDecision())
	require.NoError(t, err)
	assert.False(t, out.Executed)
	assert.Len(t, exec.calls, 2, "exactly one retry, never more")
	assert.Zero(t, sess.TotalActions(), "counters only move on confirmed success")
}

func TestOrchestrator_SessionInvalidIsFatal(t *testing.T) {
	exec := &fakeExecutor{outcomes: []schemas.ActionOutcome{
		{Executed: false, Reason: "auth token rejected", SessionInvalid: true},
	}}
	orch, _ := newTestOrchestrator(t, &fakeGenerator{}, exec, newFakeClock(t0))
	sess := NewAccountSession("acct", "tok")

	_, err := orch.Apply(context.Background(), sess, likeDecision())
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.Len(t, exec.calls, 1, "an invalid session is never retried")
}
