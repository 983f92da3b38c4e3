package model

// Field is the codec and validation unit for one record attribute.
//
// The conversion pipeline is:
//
//	write: PreSave(record, adding) -> ToStorage(native) -> storage value
//	read:  storage value -> ToNative(raw) -> native value
type Field interface {
	// Name is the attribute name the field was declared under.
	Name() string
	// Attname is the key the value is stored under on records and documents.
	Attname() string
	// SetAttributesFromName sets Name and Attname.
	SetAttributesFromName(name string)

	// Model returns the model the field is bound to, if any.
	Model() *Model
	// SetModel binds the field to its owning model.
	SetModel(m *Model)

	InternalType() string
	IsPrimaryKey() bool
	Null() bool
	HasDefault() bool
	// Default returns a freshly materialized default value.
	Default() any

	ToNative(raw any) (any, error)
	PreSave(rec Record, adding bool) (any, error)
	ToStorage(value any) (any, error)
	PrepLookup(lookup Lookup) (any, error)
	Validate(value any, rec Record) error
}

// Lookup is a single filter condition against a field value.
type Lookup struct {
	Op    string
	Value any
}

// Lookup operators understood by the scalar fields.
const (
	OpExact     = "exact"
	OpIn        = "in"
	OpRange     = "range"
	OpGt        = "gt"
	OpGte       = "gte"
	OpLt        = "lt"
	OpLte       = "lte"
	OpIsNull    = "isnull"
	OpElemMatch = "elem_match"
)

// FieldOption configures a BaseField.
type FieldOption func(*BaseField)

// WithNull allows the field to hold nil.
func WithNull() FieldOption {
	return func(f *BaseField) {
		f.null = true
	}
}

// WithPrimaryKey marks the field as the model's primary key.
func WithPrimaryKey() FieldOption {
	return func(f *BaseField) {
		f.primaryKey = true
	}
}

// WithDefault sets a static default value.
func WithDefault(v any) FieldOption {
	return func(f *BaseField) {
		f.hasDefault = true
		f.defaultValue = v
		f.defaultFunc = nil
	}
}

// WithDefaultFunc sets a default factory called once per record.
func WithDefaultFunc(fn func() any) FieldOption {
	return func(f *BaseField) {
		f.hasDefault = true
		f.defaultFunc = fn
		f.defaultValue = nil
	}
}

// BaseField carries the attributes shared by every field kind and provides
// identity conversions. Concrete fields embed it and override what they need.
type BaseField struct {
	name         string
	attname      string
	model        *Model
	null         bool
	primaryKey   bool
	hasDefault   bool
	defaultValue any
	defaultFunc  func() any
}

// NewBaseField applies opts to a fresh BaseField.
func NewBaseField(opts ...FieldOption) BaseField {
	var f BaseField
	f.Apply(opts...)
	return f
}

// Apply applies opts to the field.
func (f *BaseField) Apply(opts ...FieldOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
}

func (f *BaseField) Name() string    { return f.name }
func (f *BaseField) Attname() string { return f.attname }

func (f *BaseField) SetAttributesFromName(name string) {
	f.name = name
	f.attname = name
}

func (f *BaseField) Model() *Model     { return f.model }
func (f *BaseField) SetModel(m *Model) { f.model = m }

func (f *BaseField) InternalType() string { return "Field" }
func (f *BaseField) IsPrimaryKey() bool   { return f.primaryKey }
func (f *BaseField) Null() bool           { return f.null }
func (f *BaseField) HasDefault() bool     { return f.hasDefault }

// DefaultFunc returns the declared default factory, or nil.
func (f *BaseField) DefaultFunc() func() any { return f.defaultFunc }

// DeclaredDefault returns the static default value and whether one was set.
func (f *BaseField) DeclaredDefault() (any, bool) {
	return f.defaultValue, f.hasDefault && f.defaultFunc == nil
}

// SetDefaultFunc replaces the default with a factory.
func (f *BaseField) SetDefaultFunc(fn func() any) {
	f.hasDefault = true
	f.defaultFunc = fn
	f.defaultValue = nil
}

func (f *BaseField) Default() any {
	if f.defaultFunc != nil {
		return f.defaultFunc()
	}
	return f.defaultValue
}

func (f *BaseField) ToNative(raw any) (any, error) {
	return raw, nil
}

// PreSave returns the record's current value for the field.
func (f *BaseField) PreSave(rec Record, _ bool) (any, error) {
	v, _ := rec.Get(f.attname)
	return v, nil
}

func (f *BaseField) ToStorage(value any) (any, error) {
	return value, nil
}

func (f *BaseField) PrepLookup(lookup Lookup) (any, error) {
	switch lookup.Op {
	case OpElemMatch:
		return nil, NotImplemented("lookup %q is not supported on field %q", lookup.Op, f.name)
	}
	return lookup.Value, nil
}

func (f *BaseField) Validate(value any, _ Record) error {
	if value == nil && !f.null {
		return Validation("field %q cannot be null", f.name)
	}
	return nil
}
