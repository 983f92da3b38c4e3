package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjadoc/pkg/document"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("saving: %w", Integrity("no model for %q", "x"))

	assert.True(t, errors.Is(err, ErrIntegrity))
	assert.False(t, errors.Is(err, ErrValidation))

	var merr *Error
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, KindIntegrity, merr.Kind)
	assert.Equal(t, `no model for "x"`, merr.Message)
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Kind: KindConfiguration, Message: "bad ordering", Err: cause}

	assert.Equal(t, "bad ordering: boom", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestDefine_RejectsInvalidDeclarations(t *testing.T) {
	testCases := []struct {
		name  string
		attrs []Attr
	}{
		{name: "nil field", attrs: []Attr{A("a", nil)}},
		{name: "empty name", attrs: []Attr{A("", newTestField())}},
		{name: "duplicate", attrs: []Attr{A("a", newTestField()), A("a", newTestField())}},
		{name: "two primary keys", attrs: []Attr{
			A("a", newTestField(WithPrimaryKey())),
			A("b", newTestField(WithPrimaryKey())),
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry().Define("lore", "Broken", tc.attrs...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestModel_NewLeavesFieldsUninitialized(t *testing.T) {
	m := NewRegistry().MustDefine("lore", "Place",
		A("name", newTestField(WithDefault("nowhere"))),
		A("size", newTestField()),
	)

	inst, err := m.New(map[string]any{"size": nil})
	require.NoError(t, err)

	_, ok := inst.Get("name")
	assert.False(t, ok)
	v, ok := inst.Get("size")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.False(t, inst.State().Adding)

	_, err = m.New(map[string]any{"bogus": 1})
	assert.True(t, errors.Is(err, ErrType))
}

func TestModel_CreateAppliesDefaults(t *testing.T) {
	calls := 0
	m := NewRegistry().MustDefine("lore", "Place",
		A("name", newTestField(WithDefault("nowhere"))),
		A("seq", newTestField(WithDefaultFunc(func() any { calls++; return calls }))),
		A("size", newTestField()),
	)

	a := m.MustCreate(nil)
	b := m.MustCreate(map[string]any{"name": "Avalon"})

	assert.True(t, a.State().Adding)
	assert.Equal(t, "nowhere", a.Value("name"))
	assert.Equal(t, "Avalon", b.Value("name"))
	assert.Equal(t, 1, a.Value("seq"))
	assert.Equal(t, 2, b.Value("seq"))
	_, ok := a.Get("size")
	assert.True(t, ok)
}

func TestEncode_OmitsUnsetPrimaryKey(t *testing.T) {
	m := NewRegistry().MustDefine("lore", "Place",
		A("id", newTestField(WithPrimaryKey(), WithNull())),
		A("name", newTestField()),
		A("note", newTestField(WithNull())),
	)
	inst := m.MustCreate(map[string]any{"name": "Avalon"})

	doc, err := Encode(inst)
	require.NoError(t, err)

	_, hasID := doc["id"]
	assert.False(t, hasID)
	assert.Equal(t, document.Document{"name": "Avalon", "note": nil}, doc)
}

func TestDecode_RoundTrip(t *testing.T) {
	m := NewRegistry().MustDefine("lore", "Place",
		A("id", newTestField(WithPrimaryKey())),
		A("name", newTestField()),
	)
	inst := m.MustCreate(map[string]any{"id": "avalon", "name": "Avalon"})

	doc, err := Encode(inst)
	require.NoError(t, err)

	back, err := Decode(m, doc)
	require.NoError(t, err)
	assert.Equal(t, inst.Attributes(), back.Attributes())
	assert.False(t, back.State().Adding)
	assert.Equal(t, "avalon", back.PK())
}

func TestDecode_IgnoresUnknownKeys(t *testing.T) {
	m := NewRegistry().MustDefine("lore", "Place", A("name", newTestField()))

	back, err := Decode(m, document.Document{"name": "Avalon", "_model": "Other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Avalon"}, back.Attributes())
}

func TestFullClean(t *testing.T) {
	m := NewRegistry().MustDefine("lore", "Place",
		A("id", newTestField(WithPrimaryKey())),
		A("name", newTestField()),
	)

	err := FullClean(m.MustCreate(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "lore.Place.name")

	assert.NoError(t, FullClean(m.MustCreate(map[string]any{"name": "Avalon"})))
}
