package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/eeaton/docstack/internal/ctxlog"
)

// CLIClient implements API by shelling out to the gcloud and bq tools, the
// same way an operator would provision by hand.
type CLIClient struct {
	GcloudPath string
	BQPath     string

	// execCommand runs a tool and returns its combined output. Tests
	// override it to capture the argument vectors without spawning anything.
	execCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCLIClient returns a client that invokes `gcloud` and `bq` from PATH.
func NewCLIClient() *CLIClient {
	return &CLIClient{
		GcloudPath:  "gcloud",
		BQPath:      "bq",
		execCommand: runCombined,
	}
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// run invokes a tool, treating "already exists" responses as success so
// ensure operations stay idempotent.
func (c *CLIClient) run(ctx context.Context, name string, args ...string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking cloud CLI.", "tool", name, "args", args)

	out, err := c.execCommand(ctx, name, args...)
	if err != nil {
		if alreadyExists(out) {
			logger.Debug("Resource already exists, treating as success.", "tool", name)
			return nil
		}
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// alreadyExists matches the duplicate-resource responses of gcloud and bq.
func alreadyExists(out []byte) bool {
	s := string(out)
	return strings.Contains(s, "ALREADY_EXISTS") ||
		strings.Contains(s, "already exists") ||
		strings.Contains(s, "Already Exists")
}

// EnableService activates an API on the project.
func (c *CLIClient) EnableService(ctx context.Context, project, api string) error {
	return c.run(ctx, c.GcloudPath, "services", "enable", api, "--project", project)
}

// EnsureServiceAccount creates the account if it does not exist.
func (c *CLIClient) EnsureServiceAccount(ctx context.Context, project string, sa ServiceAccount) error {
	args := []string{"iam", "service-accounts", "create", sa.AccountID, "--project", project}
	if sa.DisplayName != "" {
		args = append(args, "--display-name", sa.DisplayName)
	}
	return c.run(ctx, c.GcloudPath, args...)
}

// EnsureBinding grants a project-level role to a member. Re-granting an
// existing binding is a no-op on the provider side.
func (c *CLIClient) EnsureBinding(ctx context.Context, project string, b Binding) error {
	return c.run(ctx, c.GcloudPath,
		"projects", "add-iam-policy-binding", project,
		"--role", b.Role,
		"--member", b.Member,
		"--condition", "None",
	)
}

// EnsureDataset creates the dataset if it does not exist.
func (c *CLIClient) EnsureDataset(ctx context.Context, project string, ds Dataset) error {
	args := []string{"--project_id", project, "mk", "--dataset"}
	if ds.Location != "" {
		args = append(args, "--location", ds.Location)
	}
	args = append(args, fmt.Sprintf("%s:%s", project, ds.DatasetID))
	return c.run(ctx, c.BQPath, args...)
}

// EnsureTable creates the table if it does not exist. The column schema is
// passed through a temp file because REQUIRED/REPEATED modes cannot be
// expressed in bq's inline schema syntax.
func (c *CLIClient) EnsureTable(ctx context.Context, project string, tbl Table) error {
	schema, err := json.Marshal(tbl.Schema)
	if err != nil {
		return fmt.Errorf("encode schema for table %s: %w", tbl.TableID, err)
	}

	f, err := os.CreateTemp("", "docstack-schema-*.json")
	if err != nil {
		return fmt.Errorf("create schema file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(schema); err != nil {
		f.Close()
		return fmt.Errorf("write schema file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close schema file: %w", err)
	}

	return c.run(ctx, c.BQPath,
		"--project_id", project,
		"mk", "--table",
		fmt.Sprintf("%s:%s.%s", project, tbl.DatasetID, tbl.TableID),
		f.Name(),
	)
}
