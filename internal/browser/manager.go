// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xKony/x-automate/internal/config"
)

// Manager owns the headless browser process. Account sessions derive their
// tab contexts from the shared allocator, so one Chrome instance serves every
// account in the run.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
	rng    *rand.Rand

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// wg tracks open surfaces for graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser process and verifies it is responsive.
func NewManager(ctx context.Context, cfg config.BrowserConfig, rng *rand.Rand, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		rng:    rng,
	}

	m.logger.Info("Initializing browser allocator...")
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, buildAllocatorOptions(cfg)...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Confirm the browser starts before any account loop depends on it.
	testCtx, cancelTest := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTab := chromedp.NewContext(testCtx)
	defer cancelTab()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return m, nil
}

// buildAllocatorOptions assembles launch flags for a stealthy, configurable
// browser instance.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		// Hide navigator.webdriver and the automation infobar.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Container-friendly flags for Linux hosts.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// NewSurface opens a fresh tab for an account: a randomized persona is
// applied, the auth token is installed as a session cookie, and the home
// timeline is loaded.
func (m *Manager) NewSurface(ctx context.Context, accountID, authToken string) (*XSurface, error) {
	persona := NewPersona(m.cfg, m.rng)

	tabCtx, cancelTab := chromedp.NewContext(m.allocatorCtx)

	// Each surface gets its own rand source: surfaces pace themselves from
	// their account goroutine, so sharing the manager's source would race.
	surf := &XSurface{
		taskCtx: tabCtx,
		cancel:  cancelTab,
		cfg:     m.cfg,
		rng:     rand.New(rand.NewSource(m.rng.Int63())),
		log: m.logger.Named("surface").With(
			zap.String("account_id", accountID)),
	}

	bootstrap := []chromedp.Action{
		chromedp.EmulateViewport(int64(persona.Width), int64(persona.Height)),
		emulation.SetUserAgentOverride(persona.UserAgent).
			WithAcceptLanguage(persona.Language),
		authCookieAction(authToken),
	}
	if err := surf.run(ctx, bootstrap...); err != nil {
		cancelTab()
		return nil, fmt.Errorf("failed to bootstrap surface for %s: %w", accountID, err)
	}

	m.logger.Info("Browser surface opened",
		zap.String("account_id", accountID),
		zap.Int("viewport_w", persona.Width),
		zap.Int("viewport_h", persona.Height),
		zap.String("language", persona.Language))

	m.wg.Add(1)
	surf.onClose = m.wg.Done
	return surf, nil
}

// authCookieAction installs the opaque auth token as the session cookie on
// both the apex and wildcard domains, mirroring how the web client stores it.
func authCookieAction(token string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		expires := cdp.TimeSinceEpoch(time.Now().Add(180 * 24 * time.Hour))
		for _, domain := range []string{".x.com", "x.com"} {
			err := network.SetCookie("auth_token", token).
				WithDomain(domain).
				WithPath("/").
				WithHTTPOnly(true).
				WithSecure(true).
				WithExpires(&expires).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set auth cookie on %s: %w", domain, err)
			}
		}
		return nil
	})
}

// Shutdown waits for open surfaces to close, then terminates the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open surfaces...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All surfaces have closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}
