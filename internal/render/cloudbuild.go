package render

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CloudBuild is the subset of the Cloud Build config document the
// provisioner understands. Rendered templates are decoded strictly against
// it so a typo in a template surfaces at plan time, not at submission time.
type CloudBuild struct {
	Steps         []BuildStep       `yaml:"steps"`
	Images        []string          `yaml:"images,omitempty"`
	Timeout       string            `yaml:"timeout,omitempty"`
	Substitutions map[string]string `yaml:"substitutions,omitempty"`
	Options       map[string]any    `yaml:"options,omitempty"`
}

// BuildStep is a single step of a Cloud Build pipeline.
type BuildStep struct {
	Name       string   `yaml:"name"`
	ID         string   `yaml:"id,omitempty"`
	Entrypoint string   `yaml:"entrypoint,omitempty"`
	Args       []string `yaml:"args,omitempty"`
	Env        []string `yaml:"env,omitempty"`
	Dir        string   `yaml:"dir,omitempty"`
}

// ParseCloudBuild strictly decodes rendered build-config text.
func ParseCloudBuild(text string) (*CloudBuild, error) {
	var doc CloudBuild
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid build config: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("invalid build config: no steps defined")
	}
	for i, step := range doc.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("invalid build config: step %d has no builder image name", i)
		}
	}
	return &doc, nil
}
