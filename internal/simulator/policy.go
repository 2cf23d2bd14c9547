package simulator

import (
	"fmt"
	"time"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/config"
)

// WindowLimit caps how many actions of one type may land inside a trailing
// rolling window.
type WindowLimit struct {
	Max    int
	Window time.Duration
}

// BehaviorPolicy is the immutable decision configuration for one account:
// per-candidate action probabilities, pacing limits, and the duplicate-content
// guard. It is constructed once at startup and read-only afterwards.
type BehaviorPolicy struct {
	Probabilities map[schemas.ActionType]float64
	MinActionGap  time.Duration
	Limits        map[schemas.ActionType]WindowLimit

	MaxContentReuse    int
	MaxActions         int
	MinCandidateLength int
	TickBatchSize      int

	CooldownMin time.Duration
	CooldownMax time.Duration
}

// NewPolicy builds a BehaviorPolicy from configuration. Any invalid value is
// an ErrConfiguration: fatal at startup, never at tick time.
func NewPolicy(cfg config.BehaviorConfig) (*BehaviorPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	p := &BehaviorPolicy{
		Probabilities: map[schemas.ActionType]float64{
			schemas.ActionLike:   cfg.ProbLike,
			schemas.ActionRepost: cfg.ProbRepost,
			schemas.ActionReply:  cfg.ProbReply,
			schemas.ActionQuote:  cfg.ProbQuote,
			schemas.ActionPost:   cfg.ProbPost,
		},
		MinActionGap: cfg.MinActionGap,
		Limits: map[schemas.ActionType]WindowLimit{
			schemas.ActionLike:   {Max: cfg.Limits.Like.Max, Window: cfg.Limits.Like.Window},
			schemas.ActionRepost: {Max: cfg.Limits.Repost.Max, Window: cfg.Limits.Repost.Window},
			schemas.ActionReply:  {Max: cfg.Limits.Reply.Max, Window: cfg.Limits.Reply.Window},
			schemas.ActionQuote:  {Max: cfg.Limits.Quote.Max, Window: cfg.Limits.Quote.Window},
			schemas.ActionPost:   {Max: cfg.Limits.Post.Max, Window: cfg.Limits.Post.Window},
		},
		MaxContentReuse:    cfg.MaxContentReuse,
		MaxActions:         cfg.MaxActions,
		MinCandidateLength: cfg.MinCandidateLength,
		TickBatchSize:      cfg.TickBatchSize,
		CooldownMin:        cfg.CooldownMin,
		CooldownMax:        cfg.CooldownMax,
	}
	return p, nil
}

// WidestWindow returns the longest configured rolling window. Session logs
// older than this are safe to evict.
func (p *BehaviorPolicy) WidestWindow() time.Duration {
	var widest time.Duration
	for _, l := range p.Limits {
		if l.Window > widest {
			widest = l.Window
		}
	}
	return widest
}
