package config

import "fmt"

// Model is the unified, format-agnostic representation of an entire
// provisioning stack: the target project, the APIs to enable, the accounts
// and role grants, the warehouse schema, and the container build pipeline.
type Model struct {
	Stack           *Stack
	Services        []*Service
	ServiceAccounts []*ServiceAccount
	Datasets        []*Dataset
	BuildConfigs    []*BuildConfig
	BuildTriggers   []*BuildTrigger
}

// Stack holds the project-wide settings every resource inherits.
type Stack struct {
	Name    string
	Project string
	Region  string
	Labels  map[string]string
}

// Service is a single cloud API to activate on the project.
type Service struct {
	API string
}

// ServiceAccount declares an account plus the project-level roles granted to
// it. The role list expands into one Binding per role; bindings are plain
// role/member pairs, never control flow.
type ServiceAccount struct {
	Name        string
	AccountID   string
	DisplayName string
	Roles       []string
}

// Email returns the account's address within the given project.
func (sa *ServiceAccount) Email(project string) string {
	return fmt.Sprintf("%s@%s.iam.gserviceaccount.com", sa.AccountID, project)
}

// Binding is a single project-level role grant.
type Binding struct {
	Role   string
	Member string
}

// Bindings expands a service account's role list into role/member pairs.
func (sa *ServiceAccount) Bindings(project string) []Binding {
	out := make([]Binding, 0, len(sa.Roles))
	for _, role := range sa.Roles {
		out = append(out, Binding{
			Role:   role,
			Member: "serviceAccount:" + sa.Email(project),
		})
	}
	return out
}

// Dataset declares a warehouse dataset and its tables.
type Dataset struct {
	Name      string
	DatasetID string
	Location  string
	Tables    []*Table
}

// Table declares a single table and its column schema.
type Table struct {
	TableID string
	Columns []*Column
}

// Column is one field of a table schema.
type Column struct {
	Name string
	Type string
	Mode string
}

// BuildConfig declares a rendered build definition: a template file plus the
// substitutions applied to it and the path the rendered text is written to.
type BuildConfig struct {
	Name          string
	Template      string
	Output        string
	Substitutions map[string]string
}

// BuildTrigger declares a build submission gated on a content fingerprint.
// Watch is the fixed, ordered list of tracked files; the submission command
// re-runs only when the aggregate fingerprint over them changes.
type BuildTrigger struct {
	Name    string
	Watch   []string
	Command string
	Dir     string
}

// Address formats the canonical node id for a resource kind and name, e.g.
// "service.documentai" or "build_trigger.form_parser".
func Address(kind, name string) string {
	return kind + "." + name
}
