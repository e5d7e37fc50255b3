package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/eeaton/docstack/internal/ctxlog"
)

var _ CommandRunner = (*ShellRunner)(nil)

// ShellRunner executes submission commands through the system shell, the
// way the build tool is normally driven from a terminal.
type ShellRunner struct{}

// Run executes the command in dir, streaming output to the process's stderr
// so build logs stay visible.
func (ShellRunner) Run(ctx context.Context, dir, command string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Running build submission command.", "dir", dir, "command", command)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build submission command failed: %w", err)
	}
	return nil
}
