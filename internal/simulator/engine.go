package simulator

import (
	"time"

	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
)

// Rand is the injectable randomness source behind every probability draw, so
// deterministic tests can replay exact draw sequences.
type Rand interface {
	// Float64 returns a uniform value in [0,1).
	Float64() float64
}

// Engine is the decision engine: a pure function over (candidate, session,
// policy, randomness) producing a Decision. It performs no I/O and mutates
// nothing; generation, execution and session updates happen downstream.
type Engine struct {
	policy *BehaviorPolicy
	gate   *Gate
	rng    Rand
	logger *zap.Logger
}

// NewEngine creates a decision engine.
func NewEngine(policy *BehaviorPolicy, gate *Gate, rng Rand, logger *zap.Logger) *Engine {
	return &Engine{
		policy: policy,
		gate:   gate,
		rng:    rng,
		logger: logger.Named("engine"),
	}
}

// Evaluate produces the decision for one candidate at one tick.
//
// Each action type gets an independent uniform draw; a type is eligible when
// its draw lands under the configured probability, the rate gate permits it,
// and (for content-bearing types) the duplicate-content guard does not block
// the candidate's text. Draws happen in priority order (reply, quote, repost,
// like) so a fixed draw sequence maps predictably onto action types.
//
// At most one action is taken per candidate per tick: when several types are
// eligible at once the highest-priority one wins. Liking, reposting and
// replying to the same post in a single tick is exactly the bot-like
// signature a human account never produces.
func (e *Engine) Evaluate(c schemas.Candidate, sess *AccountSession, now time.Time) schemas.Decision {
	if len(c.Text) < e.policy.MinCandidateLength {
		return schemas.Decision{}
	}

	var selected schemas.ActionType
	for _, t := range schemas.ActionTypes {
		draw := e.rng.Float64()
		if selected != "" {
			// A higher-priority action already won; the draw is still
			// consumed to keep the sequence aligned with the type order.
			continue
		}
		if draw >= e.policy.Probabilities[t] {
			continue
		}
		if ok, reason := e.gate.Permit(sess, t, now); !ok {
			e.logger.Debug("Action type throttled",
				zap.String("action", string(t)),
				zap.String("candidate_id", c.ID),
				zap.String("reason", reason))
			continue
		}
		if t.RequiresContent() {
			if ok, reason := e.gate.PermitContent(sess, c.Text); !ok {
				e.logger.Debug("Content guard blocked action",
					zap.String("action", string(t)),
					zap.String("candidate_id", c.ID),
					zap.String("reason", reason))
				continue
			}
		}
		selected = t
	}

	if selected == "" {
		return schemas.Decision{}
	}
	return schemas.Decision{Type: selected, Candidate: c}
}

// EvaluatePost decides whether to compose an original post this tick. Posts
// are not tied to a candidate; they get one draw per tick against the post
// probability, gated like any other action type.
func (e *Engine) EvaluatePost(sess *AccountSession, now time.Time) schemas.Decision {
	if e.rng.Float64() >= e.policy.Probabilities[schemas.ActionPost] {
		return schemas.Decision{}
	}
	if ok, reason := e.gate.Permit(sess, schemas.ActionPost, now); !ok {
		e.logger.Debug("Post throttled", zap.String("reason", reason))
		return schemas.Decision{}
	}
	return schemas.Decision{Type: schemas.ActionPost}
}
