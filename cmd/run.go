// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/browser"
	"github.com/xKony/x-automate/internal/config"
	"github.com/xKony/x-automate/internal/llmclient"
	"github.com/xKony/x-automate/internal/observability"
	"github.com/xKony/x-automate/internal/simulator"
	"github.com/xKony/x-automate/internal/store"
)

const (
	// retryBackoff paces the single retry after a transient execution failure.
	retryBackoff = 5 * time.Second
	// shutdownGrace bounds how long we wait for browser surfaces on exit.
	shutdownGrace = 15 * time.Second
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the activity simulation for every configured account",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line values override the config file and
			// environment with the right precedence.
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Stop cleanly on SIGINT/SIGTERM; in-flight actions finish and
			// session snapshots are persisted on the way out.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if len(cfg.Accounts) == 0 {
				return fmt.Errorf("invalid configuration: no accounts configured")
			}

			policy, err := simulator.NewPolicy(cfg.Behavior)
			if err != nil {
				return err
			}

			runID := uuid.New().String()
			logger.Info("Starting simulation run",
				zap.String("run_id", runID),
				zap.Int("accounts", len(cfg.Accounts)))

			generator, err := llmclient.NewGenerator(cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize content generator: %w", err)
			}

			sessionStore, err := store.New(cfg.Store, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize session store: %w", err)
			}

			seedRng := rand.New(rand.NewSource(time.Now().UnixNano()))

			manager, err := browser.NewManager(ctx, cfg.Browser, seedRng, logger)
			if err != nil {
				return fmt.Errorf("failed to launch browser: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser shutdown reported an error", zap.Error(err))
				}
			}()

			runners := make([]*simulator.Runner, 0, len(cfg.Accounts))
			for _, acct := range cfg.Accounts {
				runner, closeSurface, err := buildAccountRunner(ctx, acct, cfg, policy, generator, sessionStore, manager, seedRng, logger)
				if err != nil {
					return fmt.Errorf("failed to set up account %s: %w", acct.ID, err)
				}
				defer closeSurface()
				runners = append(runners, runner)
			}

			err = simulator.RunAll(ctx, runners)
			if errors.Is(err, context.Canceled) {
				logger.Info("Simulation run stopped by signal", zap.String("run_id", runID))
				return nil
			}
			if err != nil {
				return fmt.Errorf("simulation run failed: %w", err)
			}

			logger.Info("Simulation run complete", zap.String("run_id", runID))
			return nil
		},
	}

	return runCmd
}

// buildAccountRunner wires one account's full pipeline: token, persisted
// session, browser surface, executor, feed, and the loop runner.
func buildAccountRunner(
	ctx context.Context,
	acct config.AccountConfig,
	cfg *config.Config,
	policy *simulator.BehaviorPolicy,
	generator schemas.ContentGenerator,
	sessionStore *store.FileStore,
	manager *browser.Manager,
	seedRng *rand.Rand,
	logger *zap.Logger,
) (*simulator.Runner, func(), error) {
	token, err := config.LoadAuthToken(acct)
	if err != nil {
		return nil, nil, err
	}

	// Resume counters from the last run when a snapshot exists; the token
	// file stays authoritative for authentication.
	sess := simulator.NewAccountSession(acct.ID, token)
	snap, err := sessionStore.Load(ctx, acct.ID)
	switch {
	case err == nil:
		snap.AuthToken = token
		sess = simulator.RestoreAccountSession(snap)
	case errors.Is(err, store.ErrNotFound):
		logger.Info("No previous session snapshot, starting fresh",
			zap.String("account_id", acct.ID))
	default:
		return nil, nil, err
	}

	surf, err := manager.NewSurface(ctx, acct.ID, token)
	if err != nil {
		return nil, nil, err
	}

	executor := browser.NewExecutor(surf, cfg.Browser.BaseURL, cfg.Browser.ActionTimeout, logger)
	feed := browser.NewFeed(surf, cfg.Browser.BaseURL, logger)

	gate := simulator.NewGate(policy)

	// Each account gets its own rand stream; *rand.Rand is not safe for the
	// concurrent account goroutines to share.
	rng := rand.New(rand.NewSource(seedRng.Int63()))

	engine := simulator.NewEngine(policy, gate, rng, logger)
	orch := simulator.NewOrchestrator(
		policy, gate, generator, executor,
		simulator.SystemClock(), simulator.SystemSleeper(), logger,
		simulator.OrchestratorOptions{
			GenerationTimeout: cfg.LLM.APITimeout,
			ExecutionTimeout:  cfg.Browser.NavigationTimeout + cfg.Browser.ActionTimeout,
			RetryBackoff:      retryBackoff,
		},
	)

	runner := simulator.NewRunner(
		policy, engine, orch, feed, sessionStore, sess,
		simulator.SystemClock(), simulator.SystemSleeper(), rng, logger,
	)
	return runner, surf.Close, nil
}
