package model

import "fmt"

// Attr pairs an attribute name with the field declared under it.
type Attr struct {
	Name  string
	Field Field
}

// A declares an attribute for Registry.Define.
func A(name string, f Field) Attr {
	return Attr{Name: name, Field: f}
}

// Model describes a record type: its namespace, name and ordered fields.
type Model struct {
	namespace string
	name      string
	fields    []Field
	byAttname map[string]Field
	pk        Field
	registry  *Registry
}

func newModel(namespace, name string, attrs []Attr) (*Model, error) {
	if name == "" {
		return nil, Configuration("model name cannot be empty")
	}
	m := &Model{
		namespace: namespace,
		name:      name,
		byAttname: make(map[string]Field, len(attrs)),
	}
	for _, a := range attrs {
		if a.Field == nil {
			return nil, Configuration("%s: field %q is nil", m.QualifiedName(), a.Name)
		}
		if a.Name == "" {
			return nil, Configuration("%s: field name cannot be empty", m.QualifiedName())
		}
		a.Field.SetAttributesFromName(a.Name)
		if _, dup := m.byAttname[a.Field.Attname()]; dup {
			return nil, Configuration("%s: duplicate field %q", m.QualifiedName(), a.Name)
		}
		if a.Field.IsPrimaryKey() {
			if m.pk != nil {
				return nil, Configuration("%s: multiple primary keys (%q, %q)", m.QualifiedName(), m.pk.Name(), a.Name)
			}
			m.pk = a.Field
		}
		m.fields = append(m.fields, a.Field)
		m.byAttname[a.Field.Attname()] = a.Field
	}
	return m, nil
}

func (m *Model) Namespace() string { return m.namespace }
func (m *Model) Name() string      { return m.name }

// QualifiedName returns "namespace.Name".
func (m *Model) QualifiedName() string {
	if m.namespace == "" {
		return m.name
	}
	return m.namespace + "." + m.name
}

func (m *Model) String() string { return m.QualifiedName() }

// Fields returns the model's fields in declaration order.
func (m *Model) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Field returns the field stored under attname.
func (m *Model) Field(attname string) (Field, bool) {
	f, ok := m.byAttname[attname]
	return f, ok
}

// PrimaryKey returns the primary key field, or nil.
func (m *Model) PrimaryKey() Field { return m.pk }

// Registry returns the registry the model was defined in.
func (m *Model) Registry() *Registry { return m.registry }

// New builds an instance from attrs. Fields missing from attrs are left
// uninitialized and no defaults are applied. The instance is not marked new.
func (m *Model) New(attrs map[string]any) (*Instance, error) {
	inst := &Instance{model: m, values: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		if _, ok := m.byAttname[k]; !ok {
			return nil, TypeMismatch("%s got an unexpected attribute %q", m.QualifiedName(), k)
		}
		inst.values[k] = v
	}
	return inst, nil
}

// Create builds a new record from attrs, filling missing fields with
// their defaults. The returned instance is marked as adding.
func (m *Model) Create(attrs map[string]any) (*Instance, error) {
	inst, err := m.New(attrs)
	if err != nil {
		return nil, err
	}
	for _, f := range m.fields {
		if _, ok := inst.values[f.Attname()]; !ok {
			inst.values[f.Attname()] = f.Default()
		}
	}
	inst.state.Adding = true
	return inst, nil
}

// MustCreate is Create that panics on error.
func (m *Model) MustCreate(attrs map[string]any) *Instance {
	inst, err := m.Create(attrs)
	if err != nil {
		panic(fmt.Sprintf("model: %v", err))
	}
	return inst
}
