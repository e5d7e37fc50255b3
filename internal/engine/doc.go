// Package engine reconciles a declared stack against the recorded state.
// Planning walks the dependency graph in topological order and decides, per
// resource, whether anything must change; applying executes those decisions
// through the cloud client and records the outcome. Build triggers follow
// the fingerprint contract: the submission command runs exactly once each
// time the aggregate fingerprint over the watched files differs from the
// recorded value, and not at all otherwise.
package engine
