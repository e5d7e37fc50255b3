package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eeaton/docstack/internal/cloud"
	"github.com/eeaton/docstack/internal/config"
	"github.com/eeaton/docstack/internal/state"
)

// fakeAPI records every provisioning call.
type fakeAPI struct {
	calls []string
	fail  map[string]error
}

func (f *fakeAPI) record(call string) error {
	f.calls = append(f.calls, call)
	if err, ok := f.fail[call]; ok {
		return err
	}
	return nil
}

func (f *fakeAPI) EnableService(_ context.Context, project, api string) error {
	return f.record("enable " + api)
}

func (f *fakeAPI) EnsureServiceAccount(_ context.Context, project string, sa cloud.ServiceAccount) error {
	return f.record("account " + sa.AccountID)
}

func (f *fakeAPI) EnsureBinding(_ context.Context, project string, b cloud.Binding) error {
	return f.record("binding " + b.Role)
}

func (f *fakeAPI) EnsureDataset(_ context.Context, project string, ds cloud.Dataset) error {
	return f.record("dataset " + ds.DatasetID)
}

func (f *fakeAPI) EnsureTable(_ context.Context, project string, tbl cloud.Table) error {
	return f.record(fmt.Sprintf("table %s.%s", tbl.DatasetID, tbl.TableID))
}

// fakeRunner records submission commands.
type fakeRunner struct {
	runs []string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, dir, command string) error {
	f.runs = append(f.runs, command)
	return f.err
}

const templateText = `steps:
  - name: gcr.io/cloud-builders/docker
    args: ["build", "-t", "gcr.io/${PROJECT_ID}/form-parser", "."]
images:
  - gcr.io/${PROJECT_ID}/form-parser
`

// fixture lays out a stack's files in a temp dir and returns the model.
func fixture(t *testing.T) (string, *config.Model) {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "cloudbuild.yaml.tmpl"), []byte(templateText), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM python:3.12-slim\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("google-cloud-documentai\n"), 0600))

	model := &config.Model{
		Stack: &config.Stack{Name: "docpipe", Project: "acme-docs", Region: "us-central1"},
		Services: []*config.Service{
			{API: "iam.googleapis.com"},
			{API: "bigquery.googleapis.com"},
			{API: "cloudbuild.googleapis.com"},
		},
		ServiceAccounts: []*config.ServiceAccount{
			{Name: "parser", AccountID: "form-parser-sa", DisplayName: "Form parser",
				Roles: []string{"roles/documentai.apiUser", "roles/bigquery.dataEditor"}},
		},
		Datasets: []*config.Dataset{
			{Name: "store", DatasetID: "docs_store", Location: "US", Tables: []*config.Table{
				{TableID: "extracted_fields", Columns: []*config.Column{
					{Name: "document", Type: "STRING", Mode: "REQUIRED"},
				}},
			}},
		},
		BuildConfigs: []*config.BuildConfig{
			{Name: "parser",
				Template:      filepath.Join("build", "cloudbuild.yaml.tmpl"),
				Output:        filepath.Join("build", "cloudbuild.yaml"),
				Substitutions: map[string]string{"PROJECT_ID": "acme-docs"}},
		},
		BuildTriggers: []*config.BuildTrigger{
			{Name: "parser",
				Watch: []string{
					filepath.Join("build", "cloudbuild.yaml.tmpl"),
					filepath.Join("build", "cloudbuild.yaml"),
					"Dockerfile",
					"requirements.txt",
				},
				Command: "gcloud builds submit --config build/cloudbuild.yaml ."},
		},
	}
	return dir, model
}

func TestPlanFromEmptyState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	e := New(&fakeAPI{}, &fakeRunner{}, dir)

	plan, err := e.Plan(ctx, model, state.New())
	require.NoError(t, err)

	// Everything is new: 3 services, account, dataset, config, trigger.
	assert.Equal(t, 7, plan.Changes())
	assert.Len(t, plan.Actions, 7)

	kinds := make(map[string]Kind)
	for _, a := range plan.Actions {
		kinds[a.Address] = a.Kind
	}
	assert.Equal(t, KindCreate, kinds["service_account.parser"])
	assert.Equal(t, KindCreate, kinds["build_config.parser"])
	assert.Equal(t, KindSubmit, kinds["build_trigger.parser"])
}

func TestApplyThenReplanIsAllNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	api := &fakeAPI{}
	runner := &fakeRunner{}
	e := New(api, runner, dir)
	st := state.New()

	plan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, plan, st))

	// The cloud saw every resource and the submission ran once.
	assert.Contains(t, api.calls, "enable cloudbuild.googleapis.com")
	assert.Contains(t, api.calls, "account form-parser-sa")
	assert.Contains(t, api.calls, "binding roles/documentai.apiUser")
	assert.Contains(t, api.calls, "dataset docs_store")
	assert.Contains(t, api.calls, "table docs_store.extracted_fields")
	assert.Len(t, runner.runs, 1)

	// The rendered config landed on disk with substitutions applied.
	out, err := os.ReadFile(filepath.Join(dir, "build", "cloudbuild.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "gcr.io/acme-docs/form-parser")

	// A second plan over the same inputs changes nothing.
	replan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	assert.Equal(t, 0, replan.Changes())
}

func TestTriggerRerunsOnlyWhenWatchedContentChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	runner := &fakeRunner{}
	e := New(&fakeAPI{}, runner, dir)
	st := state.New()

	plan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, plan, st))
	require.Len(t, runner.runs, 1)

	// One byte changes in a tracked file: only the trigger re-runs.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM python:3.13-slim\n"), 0600))

	replan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	assert.Equal(t, 1, replan.Changes())

	require.NoError(t, e.Apply(ctx, replan, st))
	assert.Len(t, runner.runs, 2)

	// And a third pass with nothing changed is quiet again.
	final, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Changes())
}

func TestTriggerSubmitsWhenWatchedFileDisappears(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	runner := &fakeRunner{}
	e := New(&fakeAPI{}, runner, dir)
	st := state.New()

	plan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, plan, st))

	// A tracked file disappearing is a content change, not an error.
	require.NoError(t, os.Remove(filepath.Join(dir, "requirements.txt")))

	replan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	assert.Equal(t, 1, replan.Changes())
	require.NoError(t, e.Apply(ctx, replan, st))

	// Absence is stable: planning again with the file still missing is a noop.
	final, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Changes())
}

func TestFailedSubmissionIsRetried(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	runner := &fakeRunner{err: errors.New("build service unavailable")}
	e := New(&fakeAPI{}, runner, dir)
	st := state.New()

	plan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.Error(t, e.Apply(ctx, plan, st))

	// The trigger value is recorded only after a successful run, so the
	// next apply submits again.
	assert.Empty(t, st.Triggers)

	runner.err = nil
	replan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, replan, st))
	assert.Equal(t, 2, len(runner.runs))
	assert.NotEmpty(t, st.Triggers["parser"])
}

func TestSpecChangeReappliesOneResource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	api := &fakeAPI{}
	e := New(api, &fakeRunner{}, dir)
	st := state.New()

	plan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, plan, st))

	// Granting a new role changes the account's spec digest.
	model.ServiceAccounts[0].Roles = append(model.ServiceAccounts[0].Roles, "roles/storage.objectViewer")

	replan, err := e.Plan(ctx, model, st)
	require.NoError(t, err)
	require.Equal(t, 1, replan.Changes())

	var updated *Action
	for _, a := range replan.Actions {
		if a.Kind != KindNoop {
			updated = a
		}
	}
	require.NotNil(t, updated)
	assert.Equal(t, "service_account.parser", updated.Address)
	assert.Equal(t, KindUpdate, updated.Kind)

	api.calls = nil
	require.NoError(t, e.Apply(ctx, replan, st))
	assert.Contains(t, api.calls, "binding roles/storage.objectViewer")
}

func TestPlanRejectsInvalidRenderedConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "build", "cloudbuild.yaml.tmpl"),
		[]byte("images: [gcr.io/${PROJECT_ID}/form-parser]\n"), 0600))

	e := New(&fakeAPI{}, &fakeRunner{}, dir)
	_, err := e.Plan(ctx, model, state.New())
	assert.ErrorContains(t, err, "no steps defined")
}

func TestPlanPrint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir, model := fixture(t)
	e := New(&fakeAPI{}, &fakeRunner{}, dir)

	plan, err := e.Plan(ctx, model, state.New())
	require.NoError(t, err)

	var buf bytes.Buffer
	plan.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "submit  build_trigger.parser")
	assert.Contains(t, out, "Plan: 7 change(s), 7 resource(s) total.")
}
