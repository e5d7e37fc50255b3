// Package cloud defines the client surface the engine provisions through,
// plus an implementation backed by the gcloud and bq command-line tools.
// Every operation is an "ensure": applying a resource that already exists in
// the declared shape is a no-op, so re-running an apply is always safe.
package cloud

import "context"

// ServiceAccount is the request to ensure an account exists.
type ServiceAccount struct {
	AccountID   string
	DisplayName string
}

// Binding is a single project-level role grant.
type Binding struct {
	Role   string
	Member string
}

// Dataset is the request to ensure a warehouse dataset exists.
type Dataset struct {
	DatasetID string
	Location  string
}

// Table is the request to ensure a table with the given schema exists.
type Table struct {
	DatasetID string
	TableID   string
	Schema    []Field
}

// Field is one column of a table schema.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
}

// API is the provisioning surface the engine drives. Implementations must
// be idempotent: ensuring a resource that already matches is a no-op.
type API interface {
	EnableService(ctx context.Context, project, api string) error
	EnsureServiceAccount(ctx context.Context, project string, sa ServiceAccount) error
	EnsureBinding(ctx context.Context, project string, b Binding) error
	EnsureDataset(ctx context.Context, project string, ds Dataset) error
	EnsureTable(ctx context.Context, project string, tbl Table) error
}
