// Package dag orders the declared resources of a stack. It builds a
// Directed Acyclic Graph whose nodes are resource addresses, validates it
// against cycles, and produces the deterministic topological order the
// engine plans and applies in.
package dag
