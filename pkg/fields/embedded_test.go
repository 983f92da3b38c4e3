package fields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjadoc/pkg/document"
	"github.com/ssargent/freyjadoc/pkg/model"
)

type fixture struct {
	reg       *model.Registry
	place     *model.Model
	sword     *model.Model
	character *model.Model
	home      *Embedded
	loot      *Embedded
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := model.NewRegistry()
	fx := &fixture{reg: reg}

	fx.place = reg.MustDefine("lore", "Place",
		model.A("id", NewString(model.WithPrimaryKey(), model.WithNull())),
		model.A("name", NewString()),
		model.A("population", NewInt(model.WithNull())),
	)
	fx.sword = reg.MustDefine("items", "Sword",
		model.A("name", NewString()),
		model.A("edge", NewFloat()),
	)
	fx.home = MustEmbedded(fx.place, model.WithNull())
	fx.loot = MustEmbedded(nil, model.WithNull())
	fx.character = reg.MustDefine("lore", "Character",
		model.A("name", NewString()),
		model.A("home", fx.home),
		model.A("loot", fx.loot),
	)
	return fx
}

func TestEmbedded_TypedRoundTrip(t *testing.T) {
	fx := newFixture(t)
	place := fx.place.MustCreate(map[string]any{"id": "avalon", "name": "Avalon", "population": 12})

	stored, err := fx.home.ToStorage(place)
	require.NoError(t, err)
	doc := stored.(document.Document)
	assert.Equal(t, document.Document{"id": "avalon", "name": "Avalon", "population": int64(12)}, doc)

	back, err := fx.home.ToNative(doc)
	require.NoError(t, err)
	inst := back.(*model.Instance)
	assert.Same(t, fx.place, inst.Model())
	assert.Equal(t, "Avalon", inst.Value("name"))
	assert.Equal(t, int64(12), inst.Value("population"))
	assert.Equal(t, "avalon", inst.PK())
	assert.False(t, inst.State().Adding)
}

func TestEmbedded_EncodeMarksRecordExisting(t *testing.T) {
	fx := newFixture(t)
	place := fx.place.MustCreate(map[string]any{"name": "Avalon"})
	require.True(t, place.State().Adding)

	_, err := fx.home.ToStorage(place)
	require.NoError(t, err)
	assert.False(t, place.State().Adding)
}

func TestEmbedded_OmitsUnsetPrimaryKey(t *testing.T) {
	fx := newFixture(t)
	place := fx.place.MustCreate(map[string]any{"name": "Avalon"})

	stored, err := fx.home.ToStorage(place)
	require.NoError(t, err)

	doc := stored.(document.Document)
	_, ok := doc["id"]
	assert.False(t, ok)
	assert.Contains(t, doc, "population")
	assert.Nil(t, doc["population"])
}

func TestEmbedded_UsesEmbeddedRecordAddingState(t *testing.T) {
	reg := model.NewRegistry()
	inner := reg.MustDefine("lore", "Stamp", model.A("id", NewKSUID()), model.A("at", NewTime().AutoNowAdd()))
	f := MustEmbedded(inner)
	reg.MustDefine("lore", "Letter", model.A("stamp", f))

	fresh := inner.MustCreate(nil)
	stored, err := f.ToStorage(fresh)
	require.NoError(t, err)
	doc := stored.(document.Document)
	assert.NotEmpty(t, doc["id"])
	assert.NotEmpty(t, doc["at"])

	existing, err := inner.New(nil)
	require.NoError(t, err)
	stored, err = f.ToStorage(existing)
	require.NoError(t, err)
	doc = stored.(document.Document)
	assert.NotContains(t, doc, "id")
	assert.Nil(t, doc["at"])
}

func TestEmbedded_UntypedProvenanceRoundTrip(t *testing.T) {
	fx := newFixture(t)
	sword := fx.sword.MustCreate(map[string]any{"name": "Caliburn", "edge": 0.9})

	stored, err := fx.loot.ToStorage(sword)
	require.NoError(t, err)
	doc := stored.(document.Document)
	assert.Equal(t, "items", doc[document.ModuleKey])
	assert.Equal(t, "Sword", doc[document.ModelKey])

	back, err := fx.loot.ToNative(doc)
	require.NoError(t, err)
	inst := back.(*model.Instance)
	assert.Same(t, fx.sword, inst.Model())
	assert.Equal(t, "Caliburn", inst.Value("name"))

	// Decoding works on a copy; the caller's document keeps its markers.
	assert.Equal(t, "Sword", doc[document.ModelKey])
}

func TestEmbedded_UntypedProvenanceEmptyNamespace(t *testing.T) {
	fx := newFixture(t)
	gem := fx.reg.MustDefine("", "Gem", model.A("name", NewString()))
	// a same-named model in the owner's namespace must not be picked
	fx.reg.MustDefine("lore", "Gem", model.A("name", NewString()))

	stored, err := fx.loot.ToStorage(gem.MustCreate(map[string]any{"name": "ruby"}))
	require.NoError(t, err)
	doc := stored.(document.Document)
	assert.Equal(t, "", doc[document.ModuleKey])
	assert.Equal(t, "Gem", doc[document.ModelKey])

	back, err := fx.loot.ToNative(doc)
	require.NoError(t, err)
	inst := back.(*model.Instance)
	assert.Same(t, gem, inst.Model())
	assert.Equal(t, "ruby", inst.Value("name"))
}

func TestEmbedded_MissingModuleUsesOwnerNamespace(t *testing.T) {
	fx := newFixture(t)

	back, err := fx.loot.ToNative(document.Document{document.ModelKey: "Place", "name": "Bree"})
	require.NoError(t, err)
	assert.Same(t, fx.place, back.(*model.Instance).Model())
}

func TestEmbedded_TypedFieldOmitsProvenance(t *testing.T) {
	fx := newFixture(t)
	stored, err := fx.home.ToStorage(fx.place.MustCreate(map[string]any{"name": "Avalon"}))
	require.NoError(t, err)

	doc := stored.(document.Document)
	assert.NotContains(t, doc, document.ModuleKey)
	assert.NotContains(t, doc, document.ModelKey)
}

func TestEmbedded_StaticTypeWinsOverProvenance(t *testing.T) {
	fx := newFixture(t)
	doc := document.Document{"name": "Avalon", document.ModuleKey: "items", document.ModelKey: "Sword"}

	back, err := fx.home.ToNative(doc)
	require.NoError(t, err)
	inst := back.(*model.Instance)
	assert.Same(t, fx.place, inst.Model())
	assert.Equal(t, map[string]any{"name": "Avalon"}, inst.Attributes())
}

func TestEmbedded_StoredModel(t *testing.T) {
	fx := newFixture(t)

	values := document.Document{"name": "x", document.ModelKey: "Sword", document.ModuleKey: "items"}
	m, err := fx.loot.StoredModel(values)
	require.NoError(t, err)
	assert.Same(t, fx.sword, m)
	assert.Equal(t, document.Document{"name": "x"}, values)

	// Without a module the owner's namespace is used.
	m, err = fx.loot.StoredModel(document.Document{document.ModelKey: "Place"})
	require.NoError(t, err)
	assert.Same(t, fx.place, m)

	_, err = fx.loot.StoredModel(document.Document{document.ModelKey: "Dragon"})
	assert.True(t, errors.Is(err, model.ErrLookup))
}

func TestEmbedded_UntypedWithoutProvenance(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.loot.ToNative(document.Document{"name": "Caliburn"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrIntegrity))
}

func TestEmbedded_PreResolvedStored(t *testing.T) {
	fx := newFixture(t)

	back, err := fx.loot.ToNative(model.Stored{Model: fx.sword, Values: document.Document{"name": "Caliburn"}})
	require.NoError(t, err)
	assert.Same(t, fx.sword, back.(*model.Instance).Model())
}

func TestEmbedded_MissingFieldsStayUninitialized(t *testing.T) {
	fx := newFixture(t)

	back, err := fx.home.ToNative(map[string]any{"name": "Avalon", "population": nil})
	require.NoError(t, err)
	inst := back.(*model.Instance)

	_, ok := inst.Get("id")
	assert.False(t, ok)
	v, ok := inst.Get("population")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestEmbedded_NilPassesThrough(t *testing.T) {
	fx := newFixture(t)

	v, err := fx.home.ToNative(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = fx.home.ToStorage(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEmbedded_TypeMismatch(t *testing.T) {
	fx := newFixture(t)
	sword := fx.sword.MustCreate(map[string]any{"name": "Caliburn", "edge": 0.5})

	_, err := fx.home.ToStorage(sword)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrType))
	assert.Contains(t, err.Error(), "lore.Place")
	assert.Contains(t, err.Error(), "items.Sword")
	assert.True(t, sword.State().Adding)

	_, err = fx.loot.ToStorage("not a record")
	assert.True(t, errors.Is(err, model.ErrType))
}

func TestEmbedded_ForwardReference(t *testing.T) {
	reg := model.NewRegistry()
	f := MustEmbedded("Place")
	character := reg.MustDefine("lore", "Character", model.A("home", f))
	assert.Equal(t, []string{"lore.Place"}, reg.Pending())

	_, err := f.ToNative(document.Document{"name": "Avalon"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrIntegrity))

	place := reg.MustDefine("lore", "Place", model.A("name", NewString()))
	m, err := f.EmbeddedModel()
	require.NoError(t, err)
	assert.Same(t, place, m)

	back, err := f.ToNative(document.Document{"name": "Avalon"})
	require.NoError(t, err)
	assert.Same(t, place, back.(*model.Instance).Model())

	// Rebinding does not schedule or change anything.
	f.SetModel(character)
	assert.Empty(t, reg.Pending())
	m, _ = f.EmbeddedModel()
	assert.Same(t, place, m)
}

func TestEmbedded_UnresolvedReferenceOnEncode(t *testing.T) {
	reg := model.NewRegistry()
	f := MustEmbedded("Dragon")
	reg.MustDefine("lore", "Character", model.A("pet", f))
	other := reg.MustDefine("lore", "Cat", model.A("name", NewString()))

	_, err := f.ToStorage(other.MustCreate(map[string]any{"name": "Tom"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrIntegrity))
	assert.Contains(t, err.Error(), "unresolved record type reference")
}

func TestEmbedded_SelfReference(t *testing.T) {
	reg := model.NewRegistry()
	parent := MustEmbedded(model.SelfReference, model.WithNull())
	node := reg.MustDefine("tree", "Node", model.A("name", NewString()), model.A("parent", parent))

	root := node.MustCreate(map[string]any{"name": "root"})
	leaf := node.MustCreate(map[string]any{"name": "leaf", "parent": root})

	doc, err := model.Encode(leaf)
	require.NoError(t, err)
	assert.Equal(t, document.Document{"name": "leaf", "parent": document.Document{"name": "root", "parent": nil}}, doc)

	back, err := model.Decode(node, doc)
	require.NoError(t, err)
	assert.Equal(t, "root", back.Value("parent").(*model.Instance).Value("name"))
}

func TestEmbedded_InvalidTarget(t *testing.T) {
	_, err := NewEmbedded(42)
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	_, err = NewEmbedded("")
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestEmbedded_LookupsAndForms(t *testing.T) {
	fx := newFixture(t)

	v, err := fx.home.PrepLookup(model.Lookup{Op: model.OpIsNull, Value: true})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = fx.home.PrepLookup(model.Lookup{Op: model.OpExact, Value: map[string]any{"name": "x"}})
	assert.True(t, errors.Is(err, model.ErrNotImplemented))

	_, err = fx.home.FormField()
	assert.True(t, errors.Is(err, model.ErrNotImplemented))
}

func TestEmbedded_ListOfUntypedRecords(t *testing.T) {
	reg := model.NewRegistry()
	sword := reg.MustDefine("items", "Sword", model.A("name", NewString()))
	shield := reg.MustDefine("items", "Shield", model.A("name", NewString()), model.A("weight", NewInt()))
	inventory := MustList(MustEmbedded(nil), "item.name")
	hero := reg.MustDefine("lore", "Hero", model.A("inventory", inventory))

	a := shield.MustCreate(map[string]any{"name": "Pridwen", "weight": 7})
	b := sword.MustCreate(map[string]any{"name": "Caliburn"})
	inst := hero.MustCreate(map[string]any{"inventory": []any{a, b}})

	doc, err := model.Encode(inst)
	require.NoError(t, err)
	stored := doc["inventory"].([]any)
	require.Len(t, stored, 2)
	assert.Equal(t, "Sword", stored[0].(document.Document)[document.ModelKey])
	assert.Equal(t, "Shield", stored[1].(document.Document)[document.ModelKey])
	assert.False(t, a.State().Adding)
	assert.False(t, b.State().Adding)

	back, err := model.Decode(hero, doc)
	require.NoError(t, err)
	items := back.Value("inventory").([]any)
	assert.Same(t, sword, items[0].(*model.Instance).Model())
	assert.Same(t, shield, items[1].(*model.Instance).Model())
	assert.Equal(t, int64(7), items[1].(*model.Instance).Value("weight"))
}

func TestEmbedded_ListItemResolvesForwardReference(t *testing.T) {
	reg := model.NewRegistry()
	links := MustList(MustEmbedded("Link"), nil)
	page := reg.MustDefine("wiki", "Page", model.A("links", links))
	link := reg.MustDefine("wiki", "Link", model.A("href", NewString()))

	inst := page.MustCreate(map[string]any{"links": []any{link.MustCreate(map[string]any{"href": "/a"})}})
	doc, err := model.Encode(inst)
	require.NoError(t, err)
	assert.Equal(t, []any{document.Document{"href": "/a"}}, doc["links"])
}
