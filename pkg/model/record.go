package model

import (
	"fmt"
	"sort"
)

// State tracks whether a record already exists in storage
type State struct {
	Adding bool
}

// Record is anything fields can read attributes from during a save.
type Record interface {
	Model() *Model
	State() *State
	Get(attname string) (any, bool)
	Set(attname string, value any)
}

// Instance is a record of a Model. Attributes that were never set are
// uninitialized, which is distinct from being set to nil.
type Instance struct {
	model  *Model
	values map[string]any
	state  State
}

func (i *Instance) Model() *Model { return i.model }
func (i *Instance) State() *State { return &i.state }

// Get returns the attribute value and whether it has been initialized.
func (i *Instance) Get(attname string) (any, bool) {
	v, ok := i.values[attname]
	return v, ok
}

func (i *Instance) Set(attname string, value any) {
	i.values[attname] = value
}

// Unset makes an attribute uninitialized again.
func (i *Instance) Unset(attname string) {
	delete(i.values, attname)
}

// Value returns the attribute value, or nil when uninitialized.
func (i *Instance) Value(attname string) any {
	return i.values[attname]
}

// Attributes returns a copy of the initialized attributes.
func (i *Instance) Attributes() map[string]any {
	out := make(map[string]any, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}

// PK returns the primary key value, or nil.
func (i *Instance) PK() any {
	pk := i.model.PrimaryKey()
	if pk == nil {
		return nil
	}
	return i.values[pk.Attname()]
}

func (i *Instance) String() string {
	keys := make([]string, 0, len(i.values))
	for k := range i.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := i.model.QualifiedName() + "{"
	for n, k := range keys {
		if n > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%v", k, i.values[k])
	}
	return s + "}"
}
