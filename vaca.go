// Package vaca is the embedding API for the reader, evaluator and module
// loader implemented by this repository's subpackages: read source text
// into syntax nodes, build a root environment with the builtin table
// installed, and evaluate forms against it.
package vaca

import (
	"github.com/nahharris/vaca/builtin"
	"github.com/nahharris/vaca/eval"
	"github.com/nahharris/vaca/reader"
	"github.com/nahharris/vaca/typecheck"
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
)

// Parse reads every top-level form in src and returns them in source
// order, or the first reader error encountered.
func Parse(src string) ([]reader.Node, error) {
	return reader.Parse(src)
}

// NewEnvironment returns a fresh root environment with no bindings.
// Callers that want the standard library should follow with
// InstallBuiltins.
func NewEnvironment() *vmenv.Env {
	return vmenv.NewRoot()
}

// InstallBuiltins binds the full primitive table (arithmetic, comparison,
// logic, I/O, parsing, collection operations) into env.
func InstallBuiltins(env *vmenv.Env) {
	builtin.Register(env)
}

// SetSourceDir sets the directory `use` resolves module paths against.
// Without it, `use` falls back to the process's working directory.
func SetSourceDir(env *vmenv.Env, dir string) {
	env.SetSourceDir(dir)
}

// Evaluate lowers n to a runtime value and evaluates it in env.
func Evaluate(n reader.Node, env *vmenv.Env) (value.Value, error) {
	return eval.Evaluate(n, env)
}

// Apply invokes fn (a *value.Builtin, *value.Lambda, or anything else
// callable) with args, in env.
func Apply(fn value.Value, args []value.Value, env *vmenv.Env) (value.Value, error) {
	return eval.Apply(fn, args, env)
}

// NewTypeRegistry returns a typecheck.Registry preloaded with schemas for
// the primitive annotation names spec examples use (int, float, string,
// bool, keyword).
func NewTypeRegistry() (*typecheck.Registry, error) {
	return typecheck.NewRegistry()
}

// CheckAnnotations validates every '#'-annotated literal in nodes against
// reg, returning non-fatal diagnostics. It never runs as part of
// Evaluate; callers opt in explicitly.
func CheckAnnotations(nodes []reader.Node, reg *typecheck.Registry) ([]typecheck.Diagnostic, error) {
	return typecheck.CheckAnnotations(nodes, reg)
}
