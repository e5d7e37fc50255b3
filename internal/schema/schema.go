// Package schema defines the HCL block structures of the stack definition
// language. These structs mirror the on-disk syntax exactly; the hcl package
// translates them into the format-agnostic config model.
package schema

import "github.com/hashicorp/hcl/v2"

// Stack is the `stack` block carrying the project-wide settings.
type Stack struct {
	Name    string            `hcl:"name,label"`
	Project string            `hcl:"project"`
	Region  string            `hcl:"region"`
	Labels  map[string]string `hcl:"labels,optional"`
}

// Services is the `services` block listing the cloud APIs to activate.
type Services struct {
	Enable []string `hcl:"enable"`
}

// ServiceAccount is a `service_account` block: one account plus the
// project-level roles granted to it.
type ServiceAccount struct {
	Name        string   `hcl:"name,label"`
	AccountID   string   `hcl:"account_id"`
	DisplayName string   `hcl:"display_name,optional"`
	Roles       []string `hcl:"roles,optional"`
}

// Column is a single field of a table schema.
type Column struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
	Mode string `hcl:"mode,optional"`
}

// Table is a nested `table` block inside a dataset.
type Table struct {
	TableID string    `hcl:"table_id,label"`
	Columns []*Column `hcl:"column,block"`
}

// Dataset is a `dataset` block declaring a warehouse dataset and its tables.
type Dataset struct {
	Name      string   `hcl:"name,label"`
	DatasetID string   `hcl:"dataset_id"`
	Location  string   `hcl:"location,optional"`
	Tables    []*Table `hcl:"table,block"`
}

// BuildConfig is a `build_config` block: a build definition template and the
// substitutions used to render it.
type BuildConfig struct {
	Name          string            `hcl:"name,label"`
	Template      string            `hcl:"template"`
	Output        string            `hcl:"output"`
	Substitutions map[string]string `hcl:"substitutions,optional"`
}

// BuildTrigger is a `build_trigger` block: an ordered list of tracked files
// and the submission command to re-run when their fingerprint changes.
type BuildTrigger struct {
	Name    string   `hcl:"name,label"`
	Watch   []string `hcl:"watch"`
	Command string   `hcl:"command"`
	Dir     string   `hcl:"dir,optional"`
}

// File is the top-level structure of a single stack definition file.
type File struct {
	Stack           *Stack            `hcl:"stack,block"`
	Services        *Services         `hcl:"services,block"`
	ServiceAccounts []*ServiceAccount `hcl:"service_account,block"`
	Datasets        []*Dataset        `hcl:"dataset,block"`
	BuildConfigs    []*BuildConfig    `hcl:"build_config,block"`
	BuildTriggers   []*BuildTrigger   `hcl:"build_trigger,block"`
	Body            hcl.Body          `hcl:",remain"`
}
