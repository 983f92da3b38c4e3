package fields

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/freyjadoc/pkg/model"
)

// converter normalizes a single non-nil value.
type converter func(v any) (any, error)

// prepScalarLookup converts lookup values with conv, element-wise for the
// operators that take a list of values.
func prepScalarLookup(name string, lookup model.Lookup, conv converter) (any, error) {
	switch lookup.Op {
	case model.OpIsNull:
		return lookup.Value, nil
	case model.OpElemMatch:
		return nil, model.NotImplemented("lookup %q is not supported on field %q", lookup.Op, name)
	case model.OpIn, model.OpRange:
		if !isSlice(lookup.Value) {
			return nil, model.Validation("lookup %q on field %q needs a list, not %T", lookup.Op, name, lookup.Value)
		}
		rv := reflect.ValueOf(lookup.Value)
		out := make([]any, rv.Len())
		for i := range out {
			v, err := convertNullable(rv.Index(i).Interface(), conv)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return convertNullable(lookup.Value, conv)
}

func convertNullable(v any, conv converter) (any, error) {
	if v == nil {
		return nil, nil
	}
	return conv(v)
}

// Raw stores values as given; no validation or conversion is done.
type Raw struct {
	model.BaseField
}

// NewRaw creates a raw field.
func NewRaw(opts ...model.FieldOption) *Raw {
	return &Raw{BaseField: model.NewBaseField(opts...)}
}

func (f *Raw) InternalType() string { return "RawField" }

// String holds text.
type String struct {
	model.BaseField
}

// NewString creates a string field.
func NewString(opts ...model.FieldOption) *String {
	return &String{BaseField: model.NewBaseField(opts...)}
}

func (f *String) InternalType() string { return "CharField" }

func toString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return fmt.Sprint(v), nil
}

func (f *String) ToNative(raw any) (any, error)   { return convertNullable(raw, toString) }
func (f *String) ToStorage(value any) (any, error) { return convertNullable(value, toString) }

func (f *String) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, toString)
}

func (f *String) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	if _, ok := value.(string); !ok {
		return model.Validation("field %q expects a string, not %T", f.Name(), value)
	}
	return nil
}

// Int holds 64-bit integers. Whole numbers decoded as floats are accepted.
type Int struct {
	model.BaseField
}

// NewInt creates an integer field.
func NewInt(opts ...model.FieldOption) *Int {
	return &Int{BaseField: model.NewBaseField(opts...)}
}

func (f *Int) InternalType() string { return "IntegerField" }

func toInt(v any) (any, error) { return toInt64(v) }

func (f *Int) ToNative(raw any) (any, error)   { return convertNullable(raw, toInt) }
func (f *Int) ToStorage(value any) (any, error) { return convertNullable(value, toInt) }

func (f *Int) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, toInt)
}

func (f *Int) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	_, err := convertNullable(value, toInt)
	return err
}

// Float holds 64-bit floats.
type Float struct {
	model.BaseField
}

// NewFloat creates a float field.
func NewFloat(opts ...model.FieldOption) *Float {
	return &Float{BaseField: model.NewBaseField(opts...)}
}

func (f *Float) InternalType() string { return "FloatField" }

func toFloat(v any) (any, error) { return toFloat64(v) }

func (f *Float) ToNative(raw any) (any, error)   { return convertNullable(raw, toFloat) }
func (f *Float) ToStorage(value any) (any, error) { return convertNullable(value, toFloat) }

func (f *Float) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, toFloat)
}

func (f *Float) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	_, err := convertNullable(value, toFloat)
	return err
}

// Bool holds booleans.
type Bool struct {
	model.BaseField
}

// NewBool creates a boolean field.
func NewBool(opts ...model.FieldOption) *Bool {
	return &Bool{BaseField: model.NewBaseField(opts...)}
}

func (f *Bool) InternalType() string { return "BooleanField" }

func toBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch b {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
		return nil, model.Validation("%q is not a boolean", b)
	}
	i, err := toInt64(v)
	if err != nil || (i != 0 && i != 1) {
		return nil, model.Validation("value of type %T is not a boolean", v)
	}
	return i == 1, nil
}

func (f *Bool) ToNative(raw any) (any, error)   { return convertNullable(raw, toBool) }
func (f *Bool) ToStorage(value any) (any, error) { return convertNullable(value, toBool) }

func (f *Bool) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, toBool)
}

// Time holds instants. Stored as RFC 3339 strings with nanoseconds, in UTC.
type Time struct {
	model.BaseField
	autoNow    bool
	autoNowAdd bool
}

// NewTime creates a time field.
func NewTime(opts ...model.FieldOption) *Time {
	return &Time{BaseField: model.NewBaseField(opts...)}
}

// AutoNow makes the field take the current time on every save.
func (f *Time) AutoNow() *Time {
	f.autoNow = true
	return f
}

// AutoNowAdd makes the field take the current time when the record is
// first saved.
func (f *Time) AutoNowAdd() *Time {
	f.autoNowAdd = true
	return f
}

func (f *Time) InternalType() string { return "DateTimeField" }

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, model.Validation("%q is not an RFC 3339 time", t)
		}
		return parsed, nil
	}
	return time.Time{}, model.Validation("value of type %T is not a time", v)
}

func (f *Time) ToNative(raw any) (any, error) {
	return convertNullable(raw, func(v any) (any, error) { return toTime(v) })
}

func (f *Time) PreSave(rec model.Record, adding bool) (any, error) {
	if f.autoNow || (f.autoNowAdd && adding) {
		now := time.Now().UTC()
		rec.Set(f.Attname(), now)
		return now, nil
	}
	return f.BaseField.PreSave(rec, adding)
}

func timeStorage(v any) (any, error) {
	t, err := toTime(v)
	if err != nil {
		return nil, err
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func (f *Time) ToStorage(value any) (any, error) { return convertNullable(value, timeStorage) }

func (f *Time) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, timeStorage)
}

func (f *Time) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	_, err := convertNullable(value, func(v any) (any, error) { return toTime(v) })
	return err
}

// UUID holds RFC 4122 identifiers. Stored as canonical strings.
type UUID struct {
	model.BaseField
}

// NewUUID creates a UUID field.
func NewUUID(opts ...model.FieldOption) *UUID {
	return &UUID{BaseField: model.NewBaseField(opts...)}
}

func (f *UUID) InternalType() string { return "UUIDField" }

func toUUID(v any) (uuid.UUID, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u, nil
	case [16]byte:
		return uuid.UUID(u), nil
	case []byte:
		parsed, err := uuid.FromBytes(u)
		if err != nil {
			return uuid.Nil, model.Validation("invalid uuid bytes: %v", err)
		}
		return parsed, nil
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return uuid.Nil, model.Validation("%q is not a valid uuid", u)
		}
		return parsed, nil
	}
	return uuid.Nil, model.Validation("value of type %T is not a uuid", v)
}

func (f *UUID) ToNative(raw any) (any, error) {
	return convertNullable(raw, func(v any) (any, error) { return toUUID(v) })
}

func uuidStorage(v any) (any, error) {
	u, err := toUUID(v)
	if err != nil {
		return nil, err
	}
	return u.String(), nil
}

func (f *UUID) ToStorage(value any) (any, error) { return convertNullable(value, uuidStorage) }

func (f *UUID) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, uuidStorage)
}

func (f *UUID) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	_, err := convertNullable(value, uuidStorage)
	return err
}

// KSUID is a primary key generated on first save when unset.
type KSUID struct {
	model.BaseField
}

// NewKSUID creates a KSUID primary key field.
func NewKSUID(opts ...model.FieldOption) *KSUID {
	f := &KSUID{BaseField: model.NewBaseField(model.WithPrimaryKey(), model.WithNull())}
	f.Apply(opts...)
	return f
}

func (f *KSUID) InternalType() string { return "KSUIDAutoField" }

func toKSUID(v any) (ksuid.KSUID, error) {
	switch id := v.(type) {
	case ksuid.KSUID:
		return id, nil
	case string:
		parsed, err := ksuid.Parse(id)
		if err != nil {
			return ksuid.Nil, model.Validation("%q is not a valid ksuid", id)
		}
		return parsed, nil
	case []byte:
		parsed, err := ksuid.FromBytes(id)
		if err != nil {
			return ksuid.Nil, model.Validation("invalid ksuid bytes: %v", err)
		}
		return parsed, nil
	}
	return ksuid.Nil, model.Validation("value of type %T is not a ksuid", v)
}

func (f *KSUID) ToNative(raw any) (any, error) {
	return convertNullable(raw, func(v any) (any, error) { return toKSUID(v) })
}

// PreSave assigns a new KSUID to records being added without one.
func (f *KSUID) PreSave(rec model.Record, adding bool) (any, error) {
	v, _ := rec.Get(f.Attname())
	if id, ok := v.(ksuid.KSUID); ok && id.IsNil() {
		v = nil
	}
	if v == nil && adding {
		id := ksuid.New()
		rec.Set(f.Attname(), id)
		return id, nil
	}
	return v, nil
}

func ksuidStorage(v any) (any, error) {
	id, err := toKSUID(v)
	if err != nil {
		return nil, err
	}
	if id.IsNil() {
		return nil, nil
	}
	return id.String(), nil
}

func (f *KSUID) ToStorage(value any) (any, error) { return convertNullable(value, ksuidStorage) }

func (f *KSUID) PrepLookup(lookup model.Lookup) (any, error) {
	return prepScalarLookup(f.Name(), lookup, ksuidStorage)
}

func (f *KSUID) Validate(value any, rec model.Record) error {
	if err := f.BaseField.Validate(value, rec); err != nil {
		return err
	}
	_, err := convertNullable(value, ksuidStorage)
	return err
}
