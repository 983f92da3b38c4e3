// Package model is the record framework of freyjadoc: field descriptors,
// models, record instances, the model registry and the field-by-field
// conversion between records and stored documents.
//
// Models are declared in a Registry:
//
//	reg := model.NewRegistry()
//	place := reg.MustDefine("lore", "Place",
//		model.A("id", fields.NewKSUID()),
//		model.A("name", fields.NewString()),
//	)
//
// Fields may refer to models that are not defined yet. Registry.Lazy
// queues those references and resolves each of them exactly once, when
// the referenced model is registered.
package model
