package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/eeaton/docstack/internal/ctxlog"
	"github.com/eeaton/docstack/internal/engine"
	"github.com/eeaton/docstack/internal/state"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	st, err := state.Load(appConfig.StatePath)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	eng := engine.New(a.api, a.runner, resolveBaseDir(appConfig))
	plan, err := eng.Plan(ctx, a.model, st)
	if err != nil {
		return fmt.Errorf("failed to plan: %w", err)
	}
	plan.Print(a.outW)

	if !appConfig.Apply {
		a.logger.Info("Plan-only mode, nothing applied. Re-run with -apply to execute.")
		return nil
	}

	if plan.Changes() == 0 {
		a.logger.Info("Nothing to apply, stack is up to date.")
		return nil
	}

	applyErr := eng.Apply(ctx, plan, st)
	// Partial progress is still progress: persist whatever was recorded so
	// the next run plans only the remainder.
	if saveErr := st.Save(appConfig.StatePath); saveErr != nil {
		applyErr = errors.Join(applyErr, fmt.Errorf("failed to save state: %w", saveErr))
	}
	if applyErr != nil {
		return fmt.Errorf("apply failed: %w", applyErr)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
