// Package dof assigns stable global indices to the variables and
// equations of the DAE assembled by package model.
//
// A Registry owns two monotonic counters growing in lock-step with two
// name arrays. Variable names follow the canonical forms `pressure:<node>`,
// `flow:<node>` and `<internal>:<block>`; equation names are free-form
// and exist for diagnostics only.
package dof

import "github.com/cpmech/gosl/chk"

// Registry accumulates variable and equation names in registration order.
type Registry struct {
	variables  []string
	equations  []string
	varIndex   map[string]int
	eqnIndex   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		varIndex: make(map[string]int),
		eqnIndex: make(map[string]int),
	}
}

// RegisterVariable appends name and returns its new global index.
// Fails if name was already registered.
func (r *Registry) RegisterVariable(name string) (int, error) {
	if _, dup := r.varIndex[name]; dup {
		return 0, chk.Err("dof: variable %q already registered", name)
	}
	idx := len(r.variables)
	r.variables = append(r.variables, name)
	r.varIndex[name] = idx
	return idx, nil
}

// RegisterEquation appends name and returns its new global index.
// Fails if name was already registered.
func (r *Registry) RegisterEquation(name string) (int, error) {
	if _, dup := r.eqnIndex[name]; dup {
		return 0, chk.Err("dof: equation %q already registered", name)
	}
	idx := len(r.equations)
	r.equations = append(r.equations, name)
	r.eqnIndex[name] = idx
	return idx, nil
}

// Size returns the number of registered equations, which must equal the
// number of registered variables once the model has been finalized.
func (r *Registry) Size() int { return len(r.equations) }

// NumVariables returns the number of registered variables.
func (r *Registry) NumVariables() int { return len(r.variables) }

// IndexOf looks up the global variable index of name.
func (r *Registry) IndexOf(name string) (int, error) {
	idx, ok := r.varIndex[name]
	if !ok {
		return 0, chk.Err("dof: unknown variable %q", name)
	}
	return idx, nil
}

// EquationIndexOf looks up the global equation index of name.
func (r *Registry) EquationIndexOf(name string) (int, error) {
	idx, ok := r.eqnIndex[name]
	if !ok {
		return 0, chk.Err("dof: unknown equation %q", name)
	}
	return idx, nil
}

// Variables returns the variable names in registration order. The slice
// must not be mutated by callers.
func (r *Registry) Variables() []string { return r.variables }

// Equations returns the equation names in registration order. The slice
// must not be mutated by callers.
func (r *Registry) Equations() []string { return r.equations }

// Consistent reports whether the registered variable and equation counts
// match, a requirement after Model.Finalize completes.
func (r *Registry) Consistent() bool { return len(r.variables) == len(r.equations) }

// PressureName returns the canonical pressure variable name of a node.
func PressureName(node string) string { return "pressure:" + node }

// FlowName returns the canonical flow variable name of a node.
func FlowName(node string) string { return "flow:" + node }

// InternalName returns the canonical name of a block-internal variable.
func InternalName(internal, block string) string { return internal + ":" + block }
