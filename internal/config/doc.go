// Package config defines the format-agnostic model of a provisioning stack,
// along with the Loader interface for reading stack definitions from a
// concrete format.
//
// The `config.Model` is the single source of truth for the `dag` and
// `engine` packages. Concrete implementations of the Loader interface, such
// as for HCL, are provided in separate packages.
package config
