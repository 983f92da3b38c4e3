package model

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SelfReference resolves to the owning model in Registry.Lazy.
const SelfReference = "self"

// ResolveFunc receives the owning model and the model a reference resolved to.
type ResolveFunc func(owner, resolved *Model)

type pendingOp struct {
	owner *Model
	fn    ResolveFunc
}

// Registry holds the models of an application, keyed by namespace and
// name, and the queue of deferred reference resolutions waiting on models
// that are not defined yet.
//
// Registries are meant to be populated during schema setup. Callbacks run
// outside the registry lock, so they may define further models.
type Registry struct {
	mu      sync.Mutex
	models  map[string]*Model
	order   []string
	pending map[string][]pendingOp
	logger  zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		models:  make(map[string]*Model),
		pending: make(map[string][]pendingOp),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Define builds a model from attrs, registers it and binds every field to
// it. Fields are only bound once registration succeeded, so a rejected
// model leaves no deferred resolutions behind.
func (r *Registry) Define(namespace, name string, attrs ...Attr) (*Model, error) {
	m, err := newModel(namespace, name, attrs)
	if err != nil {
		return nil, err
	}
	if err := r.Register(m); err != nil {
		return nil, err
	}
	for _, f := range m.fields {
		f.SetModel(m)
	}
	return m, nil
}

// MustDefine is Define that panics on error. Intended for package-level
// schema declarations.
func (r *Registry) MustDefine(namespace, name string, attrs ...Attr) *Model {
	m, err := r.Define(namespace, name, attrs...)
	if err != nil {
		panic(err)
	}
	return m
}

// Register adds m to the registry and runs every resolution that was
// waiting for it, in the order they were queued.
func (r *Registry) Register(m *Model) error {
	key := m.QualifiedName()

	r.mu.Lock()
	if _, exists := r.models[key]; exists {
		r.mu.Unlock()
		return Configuration("model %q already registered", key)
	}
	m.registry = r
	r.models[key] = m
	r.order = append(r.order, key)
	ops := r.pending[key]
	delete(r.pending, key)
	r.mu.Unlock()

	r.logger.Debug().Str("model", key).Int("pending", len(ops)).Msg("model registered")
	for _, op := range ops {
		op.fn(op.owner, m)
	}
	return nil
}

// Lookup returns the model registered under namespace and name.
func (r *Registry) Lookup(namespace, name string) (*Model, error) {
	key := qualify(namespace, name)
	r.mu.Lock()
	m, ok := r.models[key]
	r.mu.Unlock()
	if !ok {
		return nil, LookupFailed("model %q is not registered", key)
	}
	return m, nil
}

// splitReference turns a reference into a namespace and name. Unqualified
// references are relative to the owner's namespace.
func splitReference(owner *Model, ref string) (string, string) {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	if owner != nil {
		return owner.Namespace(), ref
	}
	return "", ref
}

// Resolve looks up ref relative to owner.
func (r *Registry) Resolve(owner *Model, ref string) (*Model, error) {
	if ref == SelfReference && owner != nil {
		return owner, nil
	}
	ns, name := splitReference(owner, ref)
	return r.Lookup(ns, name)
}

// Lazy calls fn(owner, resolved) once ref names a registered model. If the
// model is already known, fn runs immediately.
func (r *Registry) Lazy(owner *Model, ref string, fn ResolveFunc) {
	if ref == SelfReference && owner != nil {
		fn(owner, owner)
		return
	}
	ns, name := splitReference(owner, ref)
	key := qualify(ns, name)

	r.mu.Lock()
	m, ok := r.models[key]
	if !ok {
		r.pending[key] = append(r.pending[key], pendingOp{owner: owner, fn: fn})
	}
	r.mu.Unlock()

	if ok {
		fn(owner, m)
		return
	}
	r.logger.Debug().Str("reference", key).Msg("deferred model resolution")
}

// Pending lists the references still waiting for a model, sorted.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.pending))
	for k := range r.pending {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Model, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.models[k])
	}
	return out
}

// Reset drops every model and pending resolution, for schema reloads.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]*Model)
	r.order = nil
	r.pending = make(map[string][]pendingOp)
}
