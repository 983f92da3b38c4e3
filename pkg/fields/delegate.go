package fields

import "github.com/ssargent/freyjadoc/pkg/model"

// ItemAttname is the attribute an item codec is bound to. It only exists in
// memory while an element is being converted and is never stored.
const ItemAttname = "value"

// valueRecord passes a single collection element off as the only attribute
// of a record, so the item codec can run its PreSave against it.
type valueRecord struct {
	attname string
	value   any
	state   model.State
}

func wrap(item model.Field, value any, adding bool) *valueRecord {
	return &valueRecord{attname: item.Attname(), value: value, state: model.State{Adding: adding}}
}

func (r *valueRecord) Model() *model.Model { return nil }
func (r *valueRecord) State() *model.State { return &r.state }

func (r *valueRecord) Get(attname string) (any, bool) {
	if attname != r.attname {
		return nil, false
	}
	return r.value, true
}

func (r *valueRecord) Set(attname string, value any) {
	if attname == r.attname {
		r.value = value
	}
}
