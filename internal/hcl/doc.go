// Package hcl implements the config.Loader interface for stack definitions
// written in HCL. Loading happens in two passes: the `stack` block is decoded
// first with a static context, then the remaining blocks are decoded against
// an evaluation context that exposes the stack's settings, so expressions
// like "${stack.project}" resolve inside any block.
package hcl
