package dag

import (
	"context"
	"fmt"

	"github.com/eeaton/docstack/internal/config"
	"github.com/eeaton/docstack/internal/ctxlog"
)

// Build constructs a validated dependency graph from a stack model. Edges
// encode the implicit ordering of the platform: an API must be active before
// anything that uses it, accounts exist before the dataset that grants them
// access, and a build config is rendered before the trigger that watches its
// output.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	graph := New()

	for _, s := range model.Services {
		graph.AddNode(config.Address("service", s.API))
	}
	for _, sa := range model.ServiceAccounts {
		graph.AddNode(config.Address("service_account", sa.Name))
	}
	for _, ds := range model.Datasets {
		graph.AddNode(config.Address("dataset", ds.Name))
	}
	for _, bc := range model.BuildConfigs {
		graph.AddNode(config.Address("build_config", bc.Name))
	}
	for _, bt := range model.BuildTriggers {
		graph.AddNode(config.Address("build_trigger", bt.Name))
	}

	if err := linkNodes(model, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: node linking complete.")

	if err := graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}

	logger.Debug("Build: graph construction successful.")
	return graph, nil
}

// linkNodes establishes the implicit dependency edges between resource kinds.
func linkNodes(model *config.Model, graph *Graph) error {
	// Service activations that later kinds depend on, when declared.
	serviceNode := func(api string) (string, bool) {
		for _, s := range model.Services {
			if s.API == api {
				return config.Address("service", s.API), true
			}
		}
		return "", false
	}

	for _, sa := range model.ServiceAccounts {
		to := config.Address("service_account", sa.Name)
		if from, ok := serviceNode("iam.googleapis.com"); ok {
			if err := graph.AddEdge(from, to); err != nil {
				return err
			}
		}
	}

	for _, ds := range model.Datasets {
		to := config.Address("dataset", ds.Name)
		if from, ok := serviceNode("bigquery.googleapis.com"); ok {
			if err := graph.AddEdge(from, to); err != nil {
				return err
			}
		}
		// Dataset access lists name service accounts, so the accounts must
		// exist first.
		for _, sa := range model.ServiceAccounts {
			if err := graph.AddEdge(config.Address("service_account", sa.Name), to); err != nil {
				return err
			}
		}
	}

	for _, bt := range model.BuildTriggers {
		to := config.Address("build_trigger", bt.Name)
		if from, ok := serviceNode("cloudbuild.googleapis.com"); ok {
			if err := graph.AddEdge(from, to); err != nil {
				return err
			}
		}
		// A trigger that watches a rendered build config must run after the
		// config is rendered, or it would fingerprint stale output.
		for _, bc := range model.BuildConfigs {
			if watches(bt.Watch, bc.Output) {
				if err := graph.AddEdge(config.Address("build_config", bc.Name), to); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// watches reports whether path appears in the trigger's watch list.
func watches(watch []string, path string) bool {
	for _, w := range watch {
		if w == path {
			return true
		}
	}
	return false
}
