package config

import (
	"fmt"
	"strings"
)

// Legal column types and modes for the warehouse schema.
var (
	columnTypes = map[string]bool{
		"STRING": true, "BYTES": true, "INTEGER": true, "FLOAT": true,
		"NUMERIC": true, "BOOLEAN": true, "TIMESTAMP": true, "DATE": true,
		"TIME": true, "DATETIME": true, "JSON": true, "RECORD": true,
	}
	columnModes = map[string]bool{
		"NULLABLE": true, "REQUIRED": true, "REPEATED": true,
	}
)

// Validate checks the model for structural problems that the loader cannot
// catch: malformed identifiers, duplicate addresses, empty watch lists, and
// triggers or configs referencing nothing.
func (m *Model) Validate() error {
	var errs []string

	if m.Stack == nil {
		errs = append(errs, "a stack block is required")
	} else {
		if m.Stack.Project == "" {
			errs = append(errs, "stack: project must not be empty")
		}
		if m.Stack.Region == "" {
			errs = append(errs, "stack: region must not be empty")
		}
	}

	seen := make(map[string]bool)
	claim := func(addr string) {
		if seen[addr] {
			errs = append(errs, fmt.Sprintf("duplicate resource address %q", addr))
		}
		seen[addr] = true
	}

	for _, s := range m.Services {
		claim(Address("service", s.API))
		if !strings.HasSuffix(s.API, ".googleapis.com") {
			errs = append(errs, fmt.Sprintf("service %q: API id must end in .googleapis.com", s.API))
		}
	}

	for _, sa := range m.ServiceAccounts {
		claim(Address("service_account", sa.Name))
		if sa.AccountID == "" {
			errs = append(errs, fmt.Sprintf("service_account %q: account_id must not be empty", sa.Name))
		}
		for _, role := range sa.Roles {
			if !strings.HasPrefix(role, "roles/") {
				errs = append(errs, fmt.Sprintf("service_account %q: role %q must start with roles/", sa.Name, role))
			}
		}
	}

	for _, ds := range m.Datasets {
		claim(Address("dataset", ds.Name))
		if ds.DatasetID == "" {
			errs = append(errs, fmt.Sprintf("dataset %q: dataset_id must not be empty", ds.Name))
		}
		for _, tbl := range ds.Tables {
			if tbl.TableID == "" {
				errs = append(errs, fmt.Sprintf("dataset %q: table_id must not be empty", ds.Name))
			}
			if len(tbl.Columns) == 0 {
				errs = append(errs, fmt.Sprintf("dataset %q table %q: at least one column is required", ds.Name, tbl.TableID))
			}
			for _, col := range tbl.Columns {
				if !columnTypes[col.Type] {
					errs = append(errs, fmt.Sprintf("table %q column %q: unknown type %q", tbl.TableID, col.Name, col.Type))
				}
				if col.Mode != "" && !columnModes[col.Mode] {
					errs = append(errs, fmt.Sprintf("table %q column %q: unknown mode %q", tbl.TableID, col.Name, col.Mode))
				}
			}
		}
	}

	for _, bc := range m.BuildConfigs {
		claim(Address("build_config", bc.Name))
		if bc.Template == "" {
			errs = append(errs, fmt.Sprintf("build_config %q: template must not be empty", bc.Name))
		}
		if bc.Output == "" {
			errs = append(errs, fmt.Sprintf("build_config %q: output must not be empty", bc.Name))
		}
	}

	for _, bt := range m.BuildTriggers {
		claim(Address("build_trigger", bt.Name))
		if len(bt.Watch) == 0 {
			errs = append(errs, fmt.Sprintf("build_trigger %q: watch list must not be empty", bt.Name))
		}
		if bt.Command == "" {
			errs = append(errs, fmt.Sprintf("build_trigger %q: command must not be empty", bt.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid stack definition:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
