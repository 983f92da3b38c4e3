package model

import (
	"fmt"

	"github.com/ssargent/freyjadoc/pkg/document"
)

// Stored is a document whose model was already determined by the storage
// layer.
type Stored struct {
	Model  *Model
	Values document.Document
}

// Encode runs every field of rec through PreSave and ToStorage, using the
// record's own adding state, and returns the resulting attname => value
// document. Primary keys whose storage value is nil are left out.
func Encode(rec Record) (document.Document, error) {
	m := rec.Model()
	if m == nil {
		return nil, TypeMismatch("record %T has no model", rec)
	}
	adding := rec.State().Adding

	out := make(document.Document, len(m.fields))
	for _, f := range m.fields {
		v, err := f.PreSave(rec, adding)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.QualifiedName(), f.Name(), err)
		}
		sv, err := f.ToStorage(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.QualifiedName(), f.Name(), err)
		}
		if sv == nil && f.IsPrimaryKey() {
			continue
		}
		out[f.Attname()] = sv
	}
	return out, nil
}

// Decode builds an existing instance of m from stored values. Fields whose
// attname is missing from values stay uninitialized. Keys that are not
// fields of m are ignored.
func Decode(m *Model, values document.Document) (*Instance, error) {
	attrs := make(map[string]any, len(values))
	for _, f := range m.fields {
		raw, ok := values[f.Attname()]
		if !ok {
			continue
		}
		v, err := f.ToNative(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.QualifiedName(), f.Name(), err)
		}
		attrs[f.Attname()] = v
	}
	inst, err := m.New(attrs)
	if err != nil {
		return nil, err
	}
	inst.state.Adding = false
	return inst, nil
}

// FullClean validates every field value of rec.
func FullClean(rec Record) error {
	m := rec.Model()
	if m == nil {
		return TypeMismatch("record %T has no model", rec)
	}
	for _, f := range m.fields {
		v, _ := rec.Get(f.Attname())
		if v == nil && f.IsPrimaryKey() {
			continue
		}
		if err := f.Validate(v, rec); err != nil {
			return fmt.Errorf("%s.%s: %w", m.QualifiedName(), f.Name(), err)
		}
	}
	return nil
}
