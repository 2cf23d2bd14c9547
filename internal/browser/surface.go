// File: internal/browser/surface.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xKony/x-automate/internal/config"
)

// XSurface drives one browser tab against the X web UI. It implements
// schemas.Surface; everything above it stays ignorant of chromedp.
//
// A surface is used by a single account loop and is not safe for concurrent
// use.
type XSurface struct {
	taskCtx context.Context
	cancel  context.CancelFunc
	onClose func()
	cfg     config.BrowserConfig
	rng     *rand.Rand
	log     *zap.Logger
}

// run executes chromedp actions on the tab, bounded by the caller's context.
func (s *XSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeContexts(s.taskCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeContexts bounds the tab context by the caller's deadline and
// cancellation without detaching from the tab's lifetime.
func mergeContexts(tab, caller context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(caller, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// Navigate loads the URL and waits for the document body to be ready, then
// lingers briefly the way a human does while the page settles.
func (s *XSurface) Navigate(ctx context.Context, url string) error {
	s.log.Debug("Navigating", zap.String("url", url))

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return s.settle(ctx)
}

// LocateElement waits until the selector matches a visible element.
func (s *XSurface) LocateElement(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return nil
}

// Click clicks the first visible element matching the selector, after a short
// cognitive pause.
func (s *XSurface) Click(ctx context.Context, selector string) error {
	if err := s.pause(ctx, 150*time.Millisecond, 600*time.Millisecond); err != nil {
		return err
	}
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// ExtractText returns the inner text of the first matching element.
func (s *XSurface) ExtractText(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to extract text from %q: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Type focuses the selector and types the text in small bursts with jittered
// inter-key delays, approximating human typing cadence.
func (s *XSurface) Type(ctx context.Context, selector, text string) error {
	if err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to focus %q: %w", selector, err)
	}

	for _, r := range text {
		if err := s.run(ctx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return fmt.Errorf("failed to type into %q: %w", selector, err)
		}
		if err := s.pause(ctx, 40*time.Millisecond, 140*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs a script in the page and unmarshals the result into out.
func (s *XSurface) Evaluate(ctx context.Context, script string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}

// settle waits out the render churn right after a navigation.
func (s *XSurface) settle(ctx context.Context) error {
	return s.pause(ctx, 800*time.Millisecond, 2*time.Second)
}

// pause sleeps a uniform random duration within [min, max], honoring ctx.
func (s *XSurface) pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(s.rng.Int63n(int64(max - min)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close releases the tab.
func (s *XSurface) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
		s.onClose = nil
	}
}
