package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	StackPath string // hcl stack definition file or directory
	StatePath string // local state file
	BaseDir   string // base for stack-relative paths; defaults to the stack's directory

	Apply     bool // execute the plan instead of only printing it
	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.StackPath == "" {
		return nil, errors.New("StackPath is a required configuration field and cannot be empty")
	}
	if cfg.StatePath == "" {
		return nil, errors.New("StatePath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
