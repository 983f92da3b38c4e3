// Package lore defines the record types of a world-building notebook:
// characters, places and groups, with links between them and loose
// artifacts of any registered type embedded in characters.
package lore

import (
	"fmt"
	"strings"

	"github.com/ssargent/freyjadoc/pkg/fields"
	"github.com/ssargent/freyjadoc/pkg/model"
)

// Names of the lore record types.
const (
	Character = "Character"
	Place     = "Place"
	Group     = "Group"
	Link      = "Link"
	Artifact  = "Artifact"
)

// Schema is a set of lore record types defined in one namespace
type Schema struct {
	Namespace string
	Registry  *model.Registry

	models map[string]*model.Model
}

// taggable are the attributes every top-level lore entry carries.
func taggable(attrs ...model.Attr) []model.Attr {
	base := []model.Attr{
		model.A("id", fields.NewKSUID()),
		model.A("name", fields.NewString()),
		model.A("summary", fields.NewString(model.WithNull())),
		model.A("details", fields.NewString(model.WithNull())),
		model.A("tags", fields.MustList(fields.NewString(), fields.Identity)),
	}
	base = append(base, attrs...)
	return append(base,
		model.A("created_at", fields.NewTime(model.WithNull()).AutoNowAdd()),
		model.A("updated_at", fields.NewTime(model.WithNull()).AutoNow()),
	)
}

// Define registers the lore record types in namespace. Character is defined
// first and refers to Place and Link before they exist; those references
// resolve as the later types are registered.
func Define(reg *model.Registry, namespace string) (*Schema, error) {
	if namespace == "" {
		return nil, model.Configuration("lore namespace is required")
	}
	s := &Schema{Namespace: namespace, Registry: reg, models: map[string]*model.Model{}}

	links, err := fields.NewList(fields.MustEmbedded(Link), "item.relation + ':' + item.id")
	if err != nil {
		return nil, err
	}

	defs := []struct {
		name  string
		attrs []model.Attr
	}{
		{Character, taggable(
			model.A("aka", fields.MustList(fields.NewString(), fields.Identity)),
			model.A("home", fields.MustEmbedded(Place, model.WithNull())),
			model.A("links", links),
			model.A("artifacts", fields.MustList(fields.MustEmbedded(nil), "item.name")),
			model.A("stats", fields.MustDict(fields.NewInt())),
		)},
		{Place, taggable(
			model.A("region", fields.NewString(model.WithNull())),
			model.A("links", fields.MustList(fields.MustEmbedded(Link), nil)),
		)},
		{Group, taggable(
			model.A("members", fields.MustList(fields.NewString(), nil)),
			model.A("links", fields.MustList(fields.MustEmbedded(Link), nil)),
		)},
		{Link, []model.Attr{
			model.A("type", fields.NewString()),
			model.A("id", fields.NewString()),
			model.A("relation", fields.NewString()),
		}},
		{Artifact, []model.Attr{
			model.A("name", fields.NewString()),
			model.A("kind", fields.NewString(model.WithNull())),
			model.A("power", fields.NewInt(model.WithNull())),
		}},
	}

	for _, def := range defs {
		m, err := reg.Define(namespace, def.name, def.attrs...)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", def.name, err)
		}
		s.models[strings.ToLower(def.name)] = m
	}

	if pending := reg.Pending(); len(pending) > 0 {
		return nil, model.Integrity("unresolved lore references: %s", strings.Join(pending, ", "))
	}
	return s, nil
}

// New defines the lore schema in a fresh registry.
func New(namespace string, opts ...model.RegistryOption) (*Schema, error) {
	return Define(model.NewRegistry(opts...), namespace)
}

// Model returns the record type with the given name, matched case-insensitively.
func (s *Schema) Model(name string) (*model.Model, error) {
	m, ok := s.models[strings.ToLower(name)]
	if !ok {
		return nil, model.LookupFailed("no lore record type %q", name)
	}
	return m, nil
}

// Collections returns the names of the record types stored on their own,
// those with a primary key, in definition order.
func (s *Schema) Collections() []string {
	var out []string
	for _, m := range s.Registry.Models() {
		if m.Namespace() == s.Namespace && m.PrimaryKey() != nil {
			out = append(out, strings.ToLower(m.Name()))
		}
	}
	return out
}
