package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eeaton/docstack/internal/cloud"
	"github.com/eeaton/docstack/internal/ctxlog"
	"github.com/eeaton/docstack/internal/state"
)

// Apply executes a plan in order, recording each success into the state as
// it goes. On failure the state keeps everything applied so far, so the
// caller should persist it even when Apply returns an error; the next run
// re-plans only the remainder.
func (e *Engine) Apply(ctx context.Context, plan *Plan, st *state.State) error {
	logger := ctxlog.FromContext(ctx)
	st.BeginRun(time.Now())
	logger.Info("Apply started.", "run_id", st.RunID, "changes", plan.Changes())

	for _, action := range plan.Actions {
		actionLogger := logger.With("address", action.Address, "kind", string(action.Kind))
		if action.Kind == KindNoop {
			actionLogger.Debug("Resource unchanged, skipping.")
			continue
		}

		actionLogger.Info("Applying resource.", "reason", action.Reason)
		if err := e.applyAction(ctx, plan.Project, action, st); err != nil {
			return fmt.Errorf("apply %s: %w", action.Address, err)
		}
	}

	logger.Info("Apply finished.", "run_id", st.RunID)
	return nil
}

// applyAction dispatches a single action to the cloud client, the file
// system, or the command runner, and records the result.
func (e *Engine) applyAction(ctx context.Context, project string, action *Action, st *state.State) error {
	switch {
	case action.service != nil:
		if err := e.api.EnableService(ctx, project, action.service.API); err != nil {
			return err
		}

	case action.account != nil:
		sa := action.account
		req := cloud.ServiceAccount{AccountID: sa.AccountID, DisplayName: sa.DisplayName}
		if err := e.api.EnsureServiceAccount(ctx, project, req); err != nil {
			return err
		}
		for _, b := range sa.Bindings(project) {
			if err := e.api.EnsureBinding(ctx, project, cloud.Binding{Role: b.Role, Member: b.Member}); err != nil {
				return err
			}
		}

	case action.dataset != nil:
		ds := action.dataset
		if err := e.api.EnsureDataset(ctx, project, cloud.Dataset{DatasetID: ds.DatasetID, Location: ds.Location}); err != nil {
			return err
		}
		for _, tbl := range ds.Tables {
			req := cloud.Table{DatasetID: ds.DatasetID, TableID: tbl.TableID}
			for _, col := range tbl.Columns {
				req.Schema = append(req.Schema, cloud.Field{Name: col.Name, Type: col.Type, Mode: col.Mode})
			}
			if err := e.api.EnsureTable(ctx, project, req); err != nil {
				return err
			}
		}

	case action.buildConfig != nil:
		outPath := e.path(action.buildConfig.Output)
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(action.rendered), 0644); err != nil {
			return fmt.Errorf("write rendered config: %w", err)
		}

	case action.trigger != nil:
		// The command runs exactly once per changed fingerprint: the new
		// value is recorded only after the submission succeeds, so a failed
		// run is retried by the next apply.
		if err := e.runner.Run(ctx, e.path(action.trigger.Dir), action.trigger.Command); err != nil {
			return err
		}
		st.Triggers[action.trigger.Name] = action.fingerprint
		return nil

	default:
		return fmt.Errorf("internal error: action %q has no payload", action.Address)
	}

	st.Resources[action.Address] = state.Resource{
		Digest:    action.digest,
		AppliedAt: time.Now().UTC(),
	}
	return nil
}
