package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/eeaton/docstack/internal/config"
	"github.com/eeaton/docstack/internal/ctxlog"
	"github.com/eeaton/docstack/internal/fsutil"
	"github.com/eeaton/docstack/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL stack loader.
func NewLoader() *Loader {
	return &Loader{}
}

// stackOnly decodes just the stack block on the first pass.
type stackOnly struct {
	Stack *schema.Stack `hcl:"stack,block"`
	Body  hcl.Body      `hcl:",remain"`
}

// Load parses every .hcl file under the given paths, decodes the blocks, and
// translates them into a validated config model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var filePaths []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat stack path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("walk stack directory %s: %w", path, err)
			}
			filePaths = append(filePaths, found...)
		} else {
			filePaths = append(filePaths, path)
		}
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no .hcl stack files found in %v", paths)
	}
	logger.Debug("Found stack definition files.", "files", filePaths)

	parser := hclparse.NewParser()
	var bodies []hcl.Body
	for _, filePath := range filePaths {
		file, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", filePath, diags)
		}
		bodies = append(bodies, file.Body)
	}

	// First pass: the stack block must be declared exactly once, and its
	// attributes must be literal because every other block may refer to it.
	var stack *schema.Stack
	for i, body := range bodies {
		var head stackOnly
		if diags := gohcl.DecodeBody(body, nil, &head); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", filePaths[i], diags)
		}
		if head.Stack == nil {
			continue
		}
		if stack != nil {
			return nil, fmt.Errorf("duplicate stack block in %s", filePaths[i])
		}
		stack = head.Stack
	}
	if stack == nil {
		return nil, fmt.Errorf("no stack block found in %v", paths)
	}
	logger.Debug("Stack block decoded.", "name", stack.Name, "project", stack.Project)

	evalCtx := buildEvalContext(stack)

	// Second pass: decode everything with the stack in scope and merge the
	// per-file results into a single model.
	model := &config.Model{}
	for i, body := range bodies {
		var file schema.File
		if diags := gohcl.DecodeBody(body, evalCtx, &file); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", filePaths[i], diags)
		}
		l.translateFile(&file, model)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Info("Stack definition loaded.",
		"services", len(model.Services),
		"service_accounts", len(model.ServiceAccounts),
		"datasets", len(model.Datasets),
		"build_triggers", len(model.BuildTriggers),
	)
	return model, nil
}

// buildEvalContext exposes the stack block's settings to all other blocks.
func buildEvalContext(stack *schema.Stack) *hcl.EvalContext {
	labels := cty.MapValEmpty(cty.String)
	if len(stack.Labels) > 0 {
		vals := make(map[string]cty.Value, len(stack.Labels))
		for k, v := range stack.Labels {
			vals[k] = cty.StringVal(v)
		}
		labels = cty.MapVal(vals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"stack": cty.ObjectVal(map[string]cty.Value{
				"name":    cty.StringVal(stack.Name),
				"project": cty.StringVal(stack.Project),
				"region":  cty.StringVal(stack.Region),
				"labels":  labels,
			}),
		},
	}
}
