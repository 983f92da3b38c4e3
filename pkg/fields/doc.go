// Package fields provides the field descriptors of freyjadoc models.
//
// Besides scalar fields (String, Int, Float, Bool, Time, UUID, KSUID and
// Raw), the package implements the two composite codecs that let a record
// carry structured data inside its own stored document.
//
// # Collections
//
// List and Dict apply an item codec to every element of a collection:
//
//	tags := fields.MustList(fields.NewString(), fields.Identity)
//	scores := fields.MustDict(fields.NewInt())
//
// The item codec is bound to the synthetic attribute ItemAttname and is
// driven through a single-attribute stand-in record, so any field,
// including another collection or an Embedded field, can be used as an
// item codec. When an ordering is configured, a List sorts the record's
// slice in place before every save; callers hand the slice over to the
// save for its duration.
//
// Declared defaults are copied into a new container every time a record
// is created, so two records never share a default collection.
//
// # Embedded records
//
// Embedded stores a record of another model as a nested document:
//
//	home := fields.MustEmbedded(place)       // typed
//	link := fields.MustEmbedded("Place")     // resolved once Place is defined
//	loot := fields.MustEmbedded(nil)         // untyped
//
// Untyped fields record the embedded model under the reserved
// document.ModuleKey and document.ModelKey keys. Typed fields ignore those
// keys when reading, but still strip them.
//
// Writing an embedded record marks it as existing. Both this and the
// in-place sort of ordered lists are side effects on the caller's values;
// a record must not be saved from several goroutines at once.
package fields
