package fields

import (
	"reflect"

	"github.com/ssargent/freyjadoc/pkg/model"
)

// elementFunc converts one element of a collection.
type elementFunc func(element any) (any, error)

// iterable is the shared codec for collection fields. Every element is
// piped through the item codec; the concrete collection decides the
// container shape through its mapper.
type iterable struct {
	model.BaseField
	item         model.Field
	internalType string
	// mapper applies fn to every element of value and returns a new
	// collection of the field's container kind.
	mapper func(fn elementFunc, value any) (any, error)
	// accepts reports whether value has the field's container kind.
	accepts func(value any) bool
	// clone copies a declared default into a new container.
	clone func(value any) any
	empty func() any
}

// resolveItem turns the item argument of a collection constructor into a
// field: nil means Raw, a func() model.Field is called once.
func resolveItem(item any) (model.Field, error) {
	switch it := item.(type) {
	case nil:
		return NewRaw(), nil
	case model.Field:
		return it, nil
	case func() model.Field:
		if f := it(); f != nil {
			return f, nil
		}
		return nil, model.Configuration("item field constructor returned nil")
	}
	return nil, model.Configuration("item field has to be a field, a field constructor or nil, not %T", item)
}

func (f *iterable) init(item any, opts []model.FieldOption) error {
	f.BaseField = model.NewBaseField(opts...)

	itemField, err := resolveItem(item)
	if err != nil {
		return err
	}
	if itemField.Attname() != "" {
		return model.Configuration("item field is already bound to attribute %q", itemField.Attname())
	}
	itemField.SetAttributesFromName(ItemAttname)
	f.item = itemField

	// Defaults are materialized into a new container on every access so
	// records never share one.
	if declared, ok := f.DeclaredDefault(); ok {
		if declared != nil {
			f.SetDefaultFunc(func() any { return f.clone(declared) })
		}
	} else if !f.HasDefault() && !f.Null() {
		f.SetDefaultFunc(f.empty)
	}
	return nil
}

// Item returns the item codec.
func (f *iterable) Item() model.Field { return f.item }

func (f *iterable) InternalType() string { return f.internalType }

// SetModel binds the field and its item codec to m, so an item codec that
// refers to other models can resolve them.
func (f *iterable) SetModel(m *model.Model) {
	f.BaseField.SetModel(m)
	f.item.SetModel(m)
}

func (f *iterable) ToNative(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return f.mapper(f.item.ToNative, raw)
}

// PreSave runs the item codec's PreSave over every element.
func (f *iterable) PreSave(rec model.Record, adding bool) (any, error) {
	v, _ := rec.Get(f.Attname())
	return f.preSaveValue(v, adding)
}

func (f *iterable) preSaveValue(v any, adding bool) (any, error) {
	if v == nil {
		return nil, nil
	}
	return f.mapper(func(element any) (any, error) {
		return f.item.PreSave(wrap(f.item, element, adding), adding)
	}, v)
}

func (f *iterable) ToStorage(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return f.mapper(f.item.ToStorage, value)
}

// PrepLookup hands the lookup to the item codec unchanged. Matching on
// whole elements is not supported.
func (f *iterable) PrepLookup(lookup model.Lookup) (any, error) {
	if lookup.Op == model.OpElemMatch {
		return nil, model.NotImplemented("lookup %q is not supported on %s %q", lookup.Op, f.internalType, f.Name())
	}
	return f.item.PrepLookup(lookup)
}

func (f *iterable) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	if value != nil && !f.accepts(value) {
		return model.Validation("value of type %T is not iterable", value)
	}
	return nil
}

// FormField is not supported for collection fields.
func (f *iterable) FormField() (any, error) {
	return nil, model.NotImplemented("no form field implemented for %s", f.internalType)
}

// List is a collection field whose native value is []any. If an ordering
// is configured, the list is sorted in place by it before every save.
type List struct {
	iterable
	ordering keyFunc
}

// NewList creates a list field. item is a model.Field, a func() model.Field
// or nil for Raw items. ordering is nil, a KeyFunc, a func(any) any, a
// func(any) (any, error) or an expr-lang expression over "item"; any other
// value fails with a configuration error.
func NewList(item any, ordering any, opts ...model.FieldOption) (*List, error) {
	key, err := compileOrdering(ordering)
	if err != nil {
		return nil, err
	}
	f := &List{ordering: key}
	f.internalType = "ListField"
	f.mapper = mapSlice
	f.accepts = isSlice
	f.clone = copySlice
	f.empty = func() any { return []any{} }
	if err := f.init(item, opts); err != nil {
		return nil, err
	}
	return f, nil
}

// MustList is NewList that panics on error.
func MustList(item any, ordering any, opts ...model.FieldOption) *List {
	f, err := NewList(item, ordering, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Ordered reports whether the list is sorted before saving.
func (f *List) Ordered() bool { return f.ordering != nil }

// PreSave sorts the record's list in place when an ordering is configured,
// then converts every element. The caller's slice is reordered.
func (f *List) PreSave(rec model.Record, adding bool) (any, error) {
	v, _ := rec.Get(f.Attname())
	if v == nil {
		return nil, nil
	}
	if f.ordering != nil && isSlice(v) {
		if err := sortInPlace(v, f.ordering); err != nil {
			return nil, err
		}
	}
	return f.preSaveValue(v, adding)
}

func mapSlice(fn elementFunc, value any) (any, error) {
	if !isSlice(value) {
		return nil, model.Validation("value of type %T is not iterable", value)
	}
	rv := reflect.ValueOf(value)
	out := make([]any, rv.Len())
	for i := range out {
		v, err := fn(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func copySlice(value any) any {
	if !isSlice(value) {
		return value
	}
	rv := reflect.ValueOf(value)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = cloneNested(rv.Index(i).Interface())
	}
	return out
}

// cloneNested deep-copies slices and string-keyed maps inside a declared
// default. Nil containers and other values are shared as is.
func cloneNested(v any) any {
	if !isSlice(v) && !isStringMap(v) {
		return v
	}
	if reflect.ValueOf(v).IsNil() {
		return v
	}
	if isSlice(v) {
		return copySlice(v)
	}
	return copyMap(v)
}

// Dict is a collection field whose native value is map[string]any. The
// item codec applies to values only.
type Dict struct {
	iterable
}

// NewDict creates a dict field. item follows the NewList rules.
func NewDict(item any, opts ...model.FieldOption) (*Dict, error) {
	f := &Dict{}
	f.internalType = "DictField"
	f.mapper = mapValues
	f.accepts = isStringMap
	f.clone = copyMap
	f.empty = func() any { return map[string]any{} }
	if err := f.init(item, opts); err != nil {
		return nil, err
	}
	return f, nil
}

// MustDict is NewDict that panics on error.
func MustDict(item any, opts ...model.FieldOption) *Dict {
	f, err := NewDict(item, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func mapValues(fn elementFunc, value any) (any, error) {
	if !isStringMap(value) {
		return nil, model.Validation("value of type %T is not a mapping", value)
	}
	rv := reflect.ValueOf(value)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		v, err := fn(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		out[iter.Key().String()] = v
	}
	return out, nil
}

func copyMap(value any) any {
	if !isStringMap(value) {
		return value
	}
	rv := reflect.ValueOf(value)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = cloneNested(iter.Value().Interface())
	}
	return out
}
