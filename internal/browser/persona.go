// File: internal/browser/persona.go
package browser

import (
	"math/rand"

	"github.com/xKony/x-automate/internal/config"
)

// resolutionJitterPx bounds the per-session viewport jitter applied to the
// chosen base resolution, in each direction.
const resolutionJitterPx = 20

// Persona is the randomized per-session browser fingerprint. Two sessions of
// the same account should rarely present identical viewport and language.
type Persona struct {
	UserAgent string
	Language  string
	Width     int
	Height    int
}

// NewPersona draws a persona from the configured fingerprint pools.
func NewPersona(cfg config.BrowserConfig, rng *rand.Rand) Persona {
	p := Persona{
		UserAgent: cfg.UserAgent,
		Language:  "en-US",
		Width:     1920,
		Height:    1080,
	}

	if len(cfg.Resolutions) > 0 {
		base := cfg.Resolutions[rng.Intn(len(cfg.Resolutions))]
		p.Width = base.Width + jitterPx(rng)
		p.Height = base.Height + jitterPx(rng)
	}
	if len(cfg.Languages) > 0 {
		p.Language = cfg.Languages[rng.Intn(len(cfg.Languages))]
	}
	return p
}

// jitterPx returns a uniform offset in [-resolutionJitterPx, resolutionJitterPx].
func jitterPx(rng *rand.Rand) int {
	return rng.Intn(2*resolutionJitterPx+1) - resolutionJitterPx
}
