package document

import "sort"

// Reserved keys recording an embedded record's model for untyped embedding.
const (
	ModuleKey = "_module"
	ModelKey  = "_model"
)

// Document is the generic stored form of a record: a key/value map whose
// values are scalars, nested documents, or sequences of either.
type Document map[string]any

// FromMap converts the common map shapes to a Document. ok is false when v
// is not a map with string keys.
func FromMap(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	}
	return nil, false
}

// Clone returns a deep copy of d. Nested documents, maps and slices are
// copied; other values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(d).(Document)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(Document, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// Keys returns the document keys, sorted.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pop removes key and returns its value.
func (d Document) Pop(key string) (any, bool) {
	v, ok := d[key]
	if ok {
		delete(d, key)
	}
	return v, ok
}

// Provenance returns the reserved model markers, if present.
func (d Document) Provenance() (module, model string) {
	module, _ = d[ModuleKey].(string)
	model, _ = d[ModelKey].(string)
	return module, model
}
