// Package environment implements the lexical/dynamic scope chain used by
// the tree-walker (the VM keeps its own slot-indexed frames): a linked list
// of frames, each a mapping from identifier to value, with a parent pointer
// (nil at the root).
package environment

import "github.com/nasinpali/pali/value"

// Environment is one frame of the scope chain. The frame with a nil Parent
// is the global frame.
type Environment struct {
	data   map[string]value.Value
	Parent *Environment
}

// New creates a child frame of parent. Pass nil to create the root/global
// frame.
func New(parent *Environment) *Environment {
	return &Environment{Parent: parent}
}

// GetLocal returns the value bound to k in this frame only, or none.
func (e *Environment) GetLocal(k string) value.Value {
	if v, ok := e.data[k]; ok {
		return v
	}
	return value.None
}

// SetLocal binds k to v in this frame only.
func (e *Environment) SetLocal(k string, v value.Value) {
	if e.data == nil {
		e.data = make(map[string]value.Value)
	}
	e.data[k] = v
}

// GetFirst walks from this frame toward the root and returns the value
// from the nearest frame that binds k, or none if no frame does.
func (e *Environment) GetFirst(k string) value.Value {
	if v, ok := e.data[k]; ok {
		return v
	}
	if e.Parent == nil {
		return value.None
	}
	return e.Parent.GetFirst(k)
}

// SetFirst assigns in the nearest frame that already binds k, walking
// toward the root; if no frame binds k anywhere along the chain, it binds
// at the root frame: an unbound key ends up global, not bound in the
// frame where SetFirst was first called.
func (e *Environment) SetFirst(k string, v value.Value) {
	if _, ok := e.data[k]; ok || e.Parent == nil {
		e.SetLocal(k, v)
		return
	}
	e.Parent.SetFirst(k, v)
}

// GetGlobal returns the value bound to k in the root frame, or none.
func (e *Environment) GetGlobal(k string) value.Value {
	if e.Parent != nil {
		return e.Parent.GetGlobal(k)
	}
	if v, ok := e.data[k]; ok {
		return v
	}
	return value.None
}

// SetGlobal binds k to v in the root frame.
func (e *Environment) SetGlobal(k string, v value.Value) {
	if e.Parent != nil {
		e.Parent.SetGlobal(k, v)
		return
	}
	e.SetLocal(k, v)
}
