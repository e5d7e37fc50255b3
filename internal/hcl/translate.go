package hcl

import (
	"github.com/eeaton/docstack/internal/config"
	"github.com/eeaton/docstack/internal/schema"
)

// translateFile converts one decoded file's blocks into the agnostic model,
// appending to any blocks merged from earlier files.
func (l *Loader) translateFile(f *schema.File, model *config.Model) {
	if f.Stack != nil {
		model.Stack = &config.Stack{
			Name:    f.Stack.Name,
			Project: f.Stack.Project,
			Region:  f.Stack.Region,
			Labels:  f.Stack.Labels,
		}
	}
	if f.Services != nil {
		for _, api := range f.Services.Enable {
			model.Services = append(model.Services, &config.Service{API: api})
		}
	}
	for _, sa := range f.ServiceAccounts {
		model.ServiceAccounts = append(model.ServiceAccounts, &config.ServiceAccount{
			Name:        sa.Name,
			AccountID:   sa.AccountID,
			DisplayName: sa.DisplayName,
			Roles:       sa.Roles,
		})
	}
	for _, ds := range f.Datasets {
		model.Datasets = append(model.Datasets, l.translateDataset(ds))
	}
	for _, bc := range f.BuildConfigs {
		model.BuildConfigs = append(model.BuildConfigs, &config.BuildConfig{
			Name:          bc.Name,
			Template:      bc.Template,
			Output:        bc.Output,
			Substitutions: bc.Substitutions,
		})
	}
	for _, bt := range f.BuildTriggers {
		model.BuildTriggers = append(model.BuildTriggers, &config.BuildTrigger{
			Name:    bt.Name,
			Watch:   bt.Watch,
			Command: bt.Command,
			Dir:     bt.Dir,
		})
	}
}

// translateDataset converts a dataset block and its nested tables.
func (l *Loader) translateDataset(ds *schema.Dataset) *config.Dataset {
	out := &config.Dataset{
		Name:      ds.Name,
		DatasetID: ds.DatasetID,
		Location:  ds.Location,
	}
	for _, tbl := range ds.Tables {
		t := &config.Table{TableID: tbl.TableID}
		for _, col := range tbl.Columns {
			t.Columns = append(t.Columns, &config.Column{
				Name: col.Name,
				Type: col.Type,
				Mode: col.Mode,
			})
		}
		out.Tables = append(out.Tables, t)
	}
	return out
}
