package fields

import (
	"github.com/ssargent/freyjadoc/pkg/document"
	"github.com/ssargent/freyjadoc/pkg/model"
)

// Embedded stores a whole record inside its parent's document.
//
// A typed Embedded field is declared with the model of the records it
// holds, either directly or as a reference that is resolved once the
// model is registered. An untyped field accepts records of any model and
// stores their namespace and name under document.ModuleKey and
// document.ModelKey so they can be rebuilt on read.
type Embedded struct {
	model.BaseField
	embedded  *model.Model
	ref       string
	scheduled bool
}

// NewEmbedded creates an embedded field. target is a *model.Model, a model
// reference string ("Name", "namespace.Name" or model.SelfReference), or
// nil for untyped embedding.
func NewEmbedded(target any, opts ...model.FieldOption) (*Embedded, error) {
	f := &Embedded{BaseField: model.NewBaseField(model.WithDefault(nil))}
	f.Apply(opts...)

	switch t := target.(type) {
	case nil:
	case *model.Model:
		f.embedded = t
	case string:
		if t == "" {
			return nil, model.Configuration("embedded model reference must not be empty")
		}
		f.ref = t
	default:
		return nil, model.Configuration("embedded model has to be a model, a model reference or nil, not %T", target)
	}
	return f, nil
}

// MustEmbedded is NewEmbedded that panics on error.
func MustEmbedded(target any, opts ...model.FieldOption) *Embedded {
	f, err := NewEmbedded(target, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Embedded) InternalType() string { return "EmbeddedModelField" }

// SetModel binds the field to its owner. A pending model reference is
// handed to the owner's registry, which resolves it once the model exists.
func (f *Embedded) SetModel(m *model.Model) {
	f.BaseField.SetModel(m)
	if m == nil || f.ref == "" || f.scheduled {
		return
	}
	reg := m.Registry()
	if reg == nil {
		return
	}
	f.scheduled = true
	reg.Lazy(m, f.ref, func(_, resolved *model.Model) {
		if f.embedded != nil {
			return
		}
		f.embedded = resolved
		f.ref = ""
	})
}

// Typed reports whether the field declares the model it embeds.
func (f *Embedded) Typed() bool {
	return f.embedded != nil || f.ref != ""
}

// EmbeddedModel returns the declared model, or nil for untyped fields. A
// reference that has not been resolved yet is an integrity error.
func (f *Embedded) EmbeddedModel() (*model.Model, error) {
	if f.embedded != nil {
		return f.embedded, nil
	}
	if f.ref != "" {
		return nil, model.Integrity("unresolved record type reference %q on field %q", f.ref, f.Name())
	}
	return nil, nil
}

// StoredModel returns the model of the stored values. The provenance keys
// are removed from values. A declared model always wins over the keys, so
// stale provenance cannot change what a typed field decodes to.
func (f *Embedded) StoredModel(values document.Document) (*model.Model, error) {
	moduleRaw, hasModule := values.Pop(document.ModuleKey)
	nameRaw, _ := values.Pop(document.ModelKey)

	declared, err := f.EmbeddedModel()
	if err != nil {
		return nil, err
	}
	if declared != nil {
		return declared, nil
	}

	name, _ := nameRaw.(string)
	if name == "" {
		return nil, model.Integrity("untyped embedding cannot determine record type without provenance")
	}
	owner := f.Model()
	if owner == nil || owner.Registry() == nil {
		return nil, model.Integrity("untyped embedded field %q is not bound to a registry", f.Name())
	}
	// An explicit empty module is the empty namespace.
	module, _ := moduleRaw.(string)
	if !hasModule || moduleRaw == nil {
		module = owner.Namespace()
	}
	return owner.Registry().Lookup(module, name)
}

// ToNative rebuilds an embedded record. raw is either a model.Stored whose
// model was already determined, or a stored document. Fields missing from
// the values are left uninitialized. The result is marked as existing.
func (f *Embedded) ToNative(raw any) (any, error) {
	var (
		m      *model.Model
		values document.Document
	)
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case model.Stored:
		m, values = v.Model, v.Values
	case *model.Stored:
		if v == nil {
			return nil, nil
		}
		m, values = v.Model, v.Values
	default:
		doc, ok := document.FromMap(raw)
		if !ok {
			return raw, nil
		}
		values = make(document.Document, len(doc))
		for k, e := range doc {
			values[k] = e
		}
		var err error
		if m, err = f.StoredModel(values); err != nil {
			return nil, err
		}
	}
	if m == nil {
		return nil, model.Integrity("embedded field %q got stored values without a model", f.Name())
	}
	inst, err := model.Decode(m, values)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// ToStorage converts an embedded record to a document by running each of
// its fields through PreSave and ToStorage with the record's own adding
// state. Unset primary keys are left out. Untyped fields add provenance
// keys. The record is marked as existing afterwards.
func (f *Embedded) ToStorage(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if inst, ok := value.(*model.Instance); ok && inst == nil {
		return nil, nil
	}

	declared, err := f.EmbeddedModel()
	if err != nil {
		return nil, err
	}
	rec, ok := value.(model.Record)
	if !ok || rec.Model() == nil {
		expected := "a record"
		if declared != nil {
			expected = declared.QualifiedName()
		}
		return nil, model.TypeMismatch("expected instance of %s, not %T", expected, value)
	}
	if declared != nil && rec.Model() != declared {
		return nil, model.TypeMismatch("expected instance of %s, not %s", declared.QualifiedName(), rec.Model().QualifiedName())
	}

	values, err := model.Encode(rec)
	if err != nil {
		return nil, err
	}
	if declared == nil {
		values[document.ModuleKey] = rec.Model().Namespace()
		values[document.ModelKey] = rec.Model().Name()
	}

	// The record is about to be stored.
	rec.State().Adding = false
	return values, nil
}

// PrepLookup only supports null checks; conditions on the embedded
// record's fields are not implemented.
func (f *Embedded) PrepLookup(lookup model.Lookup) (any, error) {
	if lookup.Op == model.OpIsNull {
		return lookup.Value, nil
	}
	return nil, model.NotImplemented("lookup %q is not supported on embedded field %q", lookup.Op, f.Name())
}

func (f *Embedded) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	if _, ok := value.(model.Record); !ok {
		return model.Validation("field %q expects a record, not %T", f.Name(), value)
	}
	return nil
}

// FormField is not supported for embedded fields.
func (f *Embedded) FormField() (any, error) {
	return nil, model.NotImplemented("no form field implemented for %s", f.InternalType())
}
