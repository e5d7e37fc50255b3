package engine

import (
	"context"
	"path/filepath"

	"github.com/eeaton/docstack/internal/cloud"
)

// CommandRunner executes a build submission command in a working directory.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) error
}

// Engine plans and applies stacks.
type Engine struct {
	api     cloud.API
	runner  CommandRunner
	baseDir string
}

// New creates an engine. Relative paths in the stack definition (templates,
// outputs, watched files, trigger working directories) resolve against
// baseDir.
func New(api cloud.API, runner CommandRunner, baseDir string) *Engine {
	return &Engine{
		api:     api,
		runner:  runner,
		baseDir: baseDir,
	}
}

// path resolves a stack-relative path against the base directory.
func (e *Engine) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.baseDir, p)
}
