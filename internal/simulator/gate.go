package simulator

import (
	"fmt"

	"time"

	"github.com/xKony/x-automate/api/schemas"
)

// GateState is the pacing state of one action type at a point in time. States
// cycle Available -> Throttled -> Available for the life of the session; there
// is no terminal state.
type GateState string

const (
	GateAvailable GateState = "AVAILABLE"
	GateThrottled GateState = "THROTTLED"
)

// Gate is the rate-limit gate: it decides, per action type, whether issuing
// another action right now is permitted. It never errors; an ineligible query
// simply comes back not permitted, which the decision engine treats as "this
// action type is not eligible this tick".
//
// The gate holds no state of its own. Throttling is derived lazily from the
// session's timestamp logs on every query, so transitions back to Available
// happen automatically as time passes.
type Gate struct {
	policy *BehaviorPolicy
}

// NewGate creates a gate bound to a policy.
func NewGate(policy *BehaviorPolicy) *Gate {
	return &Gate{policy: policy}
}

// Permit reports whether an action of the given type may be issued at now,
// with a human-readable reason when it may not.
func (g *Gate) Permit(sess *AccountSession, t schemas.ActionType, now time.Time) (bool, string) {
	if last := sess.LastActionAt(); !last.IsZero() {
		if gap := now.Sub(last); gap < g.policy.MinActionGap {
			return false, fmt.Sprintf("min action gap not elapsed (%s < %s)", gap, g.policy.MinActionGap)
		}
	}

	limit, ok := g.policy.Limits[t]
	if !ok {
		return false, fmt.Sprintf("no limit configured for action type %s", t)
	}
	if n := sess.CountInWindow(t, limit.Window, now); n >= limit.Max {
		return false, fmt.Sprintf("window limit reached (%d/%d within %s)", n, limit.Max, limit.Window)
	}
	return true, ""
}

// State reports the current pacing state for an action type.
func (g *Gate) State(sess *AccountSession, t schemas.ActionType, now time.Time) GateState {
	if ok, _ := g.Permit(sess, t, now); ok {
		return GateAvailable
	}
	return GateThrottled
}

// PermitContent applies the duplicate-content guard: text whose normalized
// fingerprint has already been used MaxContentReuse times is blocked for
// reply, quote and post actions.
func (g *Gate) PermitContent(sess *AccountSession, text string) (bool, string) {
	fp := Fingerprint(text)
	if uses := sess.FingerprintUses(fp); uses >= g.policy.MaxContentReuse {
		return false, fmt.Sprintf("content fingerprint %s already used %d time(s)", fp, uses)
	}
	return true, ""
}
