package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/eeaton/docstack/internal/config"
	"github.com/eeaton/docstack/internal/ctxlog"
	"github.com/eeaton/docstack/internal/dag"
	"github.com/eeaton/docstack/internal/fingerprint"
	"github.com/eeaton/docstack/internal/render"
	"github.com/eeaton/docstack/internal/state"
)

// Kind classifies what an action will do.
type Kind string

const (
	// KindCreate provisions a resource with no state record.
	KindCreate Kind = "create"
	// KindUpdate re-applies a resource whose declared spec changed.
	KindUpdate Kind = "update"
	// KindNoop leaves an unchanged resource alone.
	KindNoop Kind = "noop"
	// KindSubmit runs a build trigger's command because its fingerprint
	// differs from the recorded value.
	KindSubmit Kind = "submit"
)

// Action is one planned step, in apply order.
type Action struct {
	Address string
	Kind    Kind
	Reason  string

	// Exactly one payload is set, matching the address kind.
	service     *config.Service
	account     *config.ServiceAccount
	dataset     *config.Dataset
	buildConfig *config.BuildConfig
	trigger     *config.BuildTrigger

	// digest is recorded into state when the action succeeds.
	digest string
	// rendered is the build config text to write (build_config actions).
	rendered string
	// fingerprint is the new trigger value to record (submit actions).
	fingerprint string
}

// Plan is an ordered list of actions plus the project they target.
type Plan struct {
	Project string
	Actions []*Action
}

// Changes counts the actions that will do work.
func (p *Plan) Changes() int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind != KindNoop {
			n++
		}
	}
	return n
}

// Print writes a human-readable plan summary.
func (p *Plan) Print(w io.Writer) {
	for _, a := range p.Actions {
		if a.Kind == KindNoop {
			continue
		}
		fmt.Fprintf(w, "  %-7s %s (%s)\n", a.Kind, a.Address, a.Reason)
	}
	fmt.Fprintf(w, "Plan: %d change(s), %d resource(s) total.\n", p.Changes(), len(p.Actions))
}

// Plan diffs the declared model against the recorded state and returns the
// ordered actions an apply would execute. Planning mutates nothing: build
// configs are rendered in memory and trigger fingerprints account for
// pending renders without touching the output files.
func (e *Engine) Plan(ctx context.Context, model *config.Model, st *state.State) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	graph, err := dag.Build(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	order, err := graph.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("failed to order dependency graph: %w", err)
	}
	logger.Debug("Planning in dependency order.", "resources", len(order))

	byAddress := indexModel(model)

	// Rendered output content by resolved path, so a trigger watching a
	// yet-to-be-written config fingerprints the content apply would produce.
	pendingRenders := make(map[string]string)

	plan := &Plan{Project: model.Stack.Project}
	for _, addr := range order {
		var action *Action
		var err error

		switch res := byAddress[addr].(type) {
		case *config.Service:
			action, err = e.planSpec(addr, res, st)
		case *config.ServiceAccount:
			action, err = e.planSpec(addr, res, st)
		case *config.Dataset:
			action, err = e.planSpec(addr, res, st)
		case *config.BuildConfig:
			action, err = e.planBuildConfig(addr, res, st, pendingRenders)
		case *config.BuildTrigger:
			action, err = e.planTrigger(addr, res, st, pendingRenders)
		default:
			err = fmt.Errorf("internal error: no resource indexed for address %q", addr)
		}
		if err != nil {
			return nil, err
		}
		attachPayload(action, byAddress[addr])
		plan.Actions = append(plan.Actions, action)
	}

	logger.Info("Plan computed.", "changes", plan.Changes(), "resources", len(plan.Actions))
	return plan, nil
}

// planSpec handles the purely declarative resources: the action is decided
// by comparing the spec digest with the state record.
func (e *Engine) planSpec(addr string, spec any, st *state.State) (*Action, error) {
	digest, err := state.SpecDigest(spec)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", addr, err)
	}

	rec, known := st.Resources[addr]
	switch {
	case !known:
		return &Action{Address: addr, Kind: KindCreate, Reason: "not in state", digest: digest}, nil
	case rec.Digest != digest:
		return &Action{Address: addr, Kind: KindUpdate, Reason: "declared spec changed", digest: digest}, nil
	default:
		return &Action{Address: addr, Kind: KindNoop, Reason: "unchanged", digest: digest}, nil
	}
}

// planBuildConfig renders the template and compares it with the output file.
func (e *Engine) planBuildConfig(addr string, bc *config.BuildConfig, st *state.State, pendingRenders map[string]string) (*Action, error) {
	tmpl, err := os.ReadFile(e.path(bc.Template))
	if err != nil {
		return nil, fmt.Errorf("plan %s: read template: %w", addr, err)
	}
	rendered, err := render.Render(string(tmpl), bc.Substitutions)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", addr, err)
	}
	if _, err := render.ParseCloudBuild(rendered); err != nil {
		return nil, fmt.Errorf("plan %s: %w", addr, err)
	}

	digest, err := state.SpecDigest(bc)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", addr, err)
	}

	outPath := e.path(bc.Output)
	current, err := os.ReadFile(outPath)
	switch {
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("plan %s: read output: %w", addr, err)
	case err != nil:
		pendingRenders[outPath] = rendered
		return &Action{Address: addr, Kind: KindCreate, Reason: "output not rendered yet", digest: digest, rendered: rendered}, nil
	case string(current) != rendered:
		pendingRenders[outPath] = rendered
		return &Action{Address: addr, Kind: KindUpdate, Reason: "rendered output changed", digest: digest, rendered: rendered}, nil
	default:
		return &Action{Address: addr, Kind: KindNoop, Reason: "output up to date", digest: digest, rendered: rendered}, nil
	}
}

// planTrigger computes the aggregate fingerprint over the watched files, in
// their declared order, and compares it with the recorded trigger value.
func (e *Engine) planTrigger(addr string, bt *config.BuildTrigger, st *state.State, pendingRenders map[string]string) (*Action, error) {
	digests := make([]string, 0, len(bt.Watch))
	for _, w := range bt.Watch {
		resolved := e.path(w)
		if rendered, ok := pendingRenders[resolved]; ok {
			digests = append(digests, fingerprint.Bytes([]byte(rendered)))
			continue
		}
		d, err := fingerprint.File(resolved)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", addr, err)
		}
		digests = append(digests, d)
	}
	value := fingerprint.Combine(digests)

	last, known := st.Triggers[bt.Name]
	switch {
	case !known:
		return &Action{Address: addr, Kind: KindSubmit, Reason: "no trigger value recorded", fingerprint: value}, nil
	case last != value:
		return &Action{Address: addr, Kind: KindSubmit, Reason: "fingerprint changed", fingerprint: value}, nil
	default:
		return &Action{Address: addr, Kind: KindNoop, Reason: "fingerprint unchanged", fingerprint: value}, nil
	}
}

// indexModel maps every resource address to its config struct.
func indexModel(model *config.Model) map[string]any {
	idx := make(map[string]any)
	for _, s := range model.Services {
		idx[config.Address("service", s.API)] = s
	}
	for _, sa := range model.ServiceAccounts {
		idx[config.Address("service_account", sa.Name)] = sa
	}
	for _, ds := range model.Datasets {
		idx[config.Address("dataset", ds.Name)] = ds
	}
	for _, bc := range model.BuildConfigs {
		idx[config.Address("build_config", bc.Name)] = bc
	}
	for _, bt := range model.BuildTriggers {
		idx[config.Address("build_trigger", bt.Name)] = bt
	}
	return idx
}

// attachPayload stores the typed resource on the action for apply.
func attachPayload(a *Action, res any) {
	switch r := res.(type) {
	case *config.Service:
		a.service = r
	case *config.ServiceAccount:
		a.account = r
	case *config.Dataset:
		a.dataset = r
	case *config.BuildConfig:
		a.buildConfig = r
	case *config.BuildTrigger:
		a.trigger = r
	}
}
