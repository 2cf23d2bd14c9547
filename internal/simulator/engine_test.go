// File: internal/simulator/engine_test.go
package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/config"
)

func newTestEngine(t *testing.T, mutate func(*config.BehaviorConfig), rng Rand) (*Engine, *AccountSession) {
	t.Helper()
	c := testBehaviorConfig()
	if mutate != nil {
		mutate(&c)
	}
	policy := mustPolicy(t, c)
	return NewEngine(policy, NewGate(policy), rng, testLogger), NewAccountSession("acct", "tok")
}

func TestEngine_AllProbabilitiesZeroNeverActs(t *testing.T) {
	// Draws land in [0,1); even a draw of exactly 0 cannot beat probability 0.
	eng, sess := newTestEngine(t, nil, constRand(0))

	for i := 0; i < 100; i++ {
		d := eng.Evaluate(candidate("c1", "a perfectly ordinary candidate post"), sess, t0)
		assert.True(t, d.IsNoAction())
	}
	assert.True(t, eng.EvaluatePost(sess, t0).IsNoAction())
}

func TestEngine_SingleCertainProbabilityAlwaysSelectsThatType(t *testing.T) {
	for _, typ := range schemas.ActionTypes {
		eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
			switch typ {
			case schemas.ActionLike:
				c.ProbLike = 1
			case schemas.ActionRepost:
				c.ProbRepost = 1
			case schemas.ActionReply:
				c.ProbReply = 1
			case schemas.ActionQuote:
				c.ProbQuote = 1
			}
		}, constRand(0.999))

		d := eng.Evaluate(candidate("c1", "a perfectly ordinary candidate post"), sess, t0)
		assert.Equal(t, typ, d.Type, "probability 1 for %s must always select it", typ)
		assert.Equal(t, "c1", d.Candidate.ID)
	}
}

func TestEngine_HigherPriorityTypeWinsWhenBothEligible(t *testing.T) {
	// Reply and like are both certain; only the reply may happen.
	eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
		c.ProbReply = 1
		c.ProbLike = 1
	}, constRand(0.5))

	d := eng.Evaluate(candidate("c1", "a perfectly ordinary candidate post"), sess, t0)
	assert.Equal(t, schemas.ActionReply, d.Type)
}

func TestEngine_DrawsConsumedInPriorityOrder(t *testing.T) {
	// One draw per type, in reply/quote/repost/like order, regardless of
	// which type wins. The scripted sequence makes the mapping observable:
	// reply misses (0.9 >= 0.5), quote misses, repost hits (0.05 < 0.10).
	rng := &scriptedRand{draws: []float64{0.9, 0.9, 0.05, 0.9}}
	eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
		c.ProbReply = 0.5
		c.ProbQuote = 0.5
		c.ProbRepost = 0.10
		c.ProbLike = 0.5
	}, rng)

	d := eng.Evaluate(candidate("c1", "a perfectly ordinary candidate post"), sess, t0)
	assert.Equal(t, schemas.ActionRepost, d.Type)
	assert.Equal(t, 4, rng.i, "all four draws are consumed even after a type is selected")
}

func TestEngine_ThrottledTypeFallsThroughToNextEligible(t *testing.T) {
	eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
		c.ProbReply = 1
		c.ProbLike = 1
		c.MinActionGap = time.Millisecond
		c.Limits.Reply.Max = 1
		c.Limits.Reply.Window = time.Hour
	}, constRand(0.5))

	// Exhaust the reply window.
	sess.RecordSuccess(schemas.ActionReply, "", t0, time.Hour)

	d := eng.Evaluate(candidate("c1", "a perfectly ordinary candidate post"), sess, t0.Add(time.Minute))
	assert.Equal(t, schemas.ActionLike, d.Type, "throttled reply must not block an eligible like")
}

func TestEngine_ContentGuardBlocksContentBearingTypes(t *testing.T) {
	eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
		c.ProbReply = 1
		c.MaxContentReuse = 1
	}, constRand(0.5))

	text := "a perfectly ordinary candidate post"
	sess.RecordSuccess(schemas.ActionReply, Fingerprint(text), t0, time.Hour)

	d := eng.Evaluate(candidate("c1", text), sess, t0.Add(time.Minute))
	assert.True(t, d.IsNoAction(), "reused candidate text blocks the reply and nothing else is eligible")
}

func TestEngine_ShortCandidatesAreSkipped(t *testing.T) {
	eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
		c.ProbLike = 1
		c.MinCandidateLength = 20
	}, constRand(0))

	assert.True(t, eng.Evaluate(candidate("c1", "too short"), sess, t0).IsNoAction())
	assert.False(t, eng.Evaluate(candidate("c2", "this one clears the minimum length"), sess, t0).IsNoAction())
}

func TestEngine_EvaluatePost(t *testing.T) {
	eng, sess := newTestEngine(t, func(c *config.BehaviorConfig) {
		c.ProbPost = 1
	}, constRand(0.5))

	d := eng.EvaluatePost(sess, t0)
	assert.Equal(t, schemas.ActionPost, d.Type)
	assert.Empty(t, d.Candidate.ID, "posts are not tied to a candidate")

	// Gated like everything else: right after an action the gap blocks it.
	sess.RecordSuccess(schemas.ActionLike, "", t0, time.Hour)
	assert.True(t, eng.EvaluatePost(sess, t0.Add(time.Second)).IsNoAction())
}
