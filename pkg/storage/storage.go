package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/ssargent/freyjadoc/pkg/document"
	"github.com/ssargent/freyjadoc/pkg/model"
)

// ErrNotFound is returned when no document is stored under a key.
var ErrNotFound = errors.New("document not found")

// DB stores documents of many models in one Pebble database
type DB struct {
	db     *pebble.DB
	codec  *document.Codec
	sync   bool
	logger zerolog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for storage events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *DB) {
		s.logger = logger
	}
}

// WithSync makes every write wait for the WAL to be synced.
func WithSync(sync bool) Option {
	return func(s *DB) {
		s.sync = sync
	}
}

// Open opens or creates the database at path
func Open(path string, opts ...Option) (*DB, error) {
	s := &DB{codec: document.NewCodec(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	s.db = db
	s.logger.Debug().Str("path", path).Msg("storage opened")
	return s, nil
}

func (s *DB) writeOptions() *pebble.WriteOptions {
	if s.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Collection returns the collection of records of m. The model must have a
// primary key.
func (s *DB) Collection(m *model.Model) (*Collection, error) {
	if m.PrimaryKey() == nil {
		return nil, model.Configuration("model %s has no primary key", m.QualifiedName())
	}
	return &Collection{db: s, model: m, prefix: m.QualifiedName() + ":"}, nil
}

// Close closes the database
func (s *DB) Close() error {
	return s.db.Close()
}

// Collection stores the records of one model, keyed by primary key
type Collection struct {
	db     *DB
	model  *model.Model
	prefix string
}

// Model returns the collection's model.
func (c *Collection) Model() *model.Model { return c.model }

func (c *Collection) key(pk string) []byte {
	return []byte(c.prefix + pk)
}

// storageKey converts a native primary key to its key form.
func (c *Collection) storageKey(pk any) (string, error) {
	v, err := c.model.PrimaryKey().ToStorage(pk)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", model.Integrity("%s: primary key is not set", c.model.QualifiedName())
	}
	key := fmt.Sprint(v)
	if key == "" {
		return "", model.Integrity("%s: primary key is empty", c.model.QualifiedName())
	}
	return key, nil
}

// Put validates and stores rec, returning its primary key. A record that
// is being added gets its generated fields filled in and is marked as
// existing afterwards.
func (c *Collection) Put(ctx context.Context, rec *model.Instance) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec.Model() != c.model {
		return "", model.TypeMismatch("collection %s cannot store %s", c.model.QualifiedName(), rec.Model().QualifiedName())
	}
	if err := model.FullClean(rec); err != nil {
		return "", err
	}

	doc, err := model.Encode(rec)
	if err != nil {
		return "", err
	}
	pkField := c.model.PrimaryKey()
	stored, ok := doc[pkField.Attname()]
	if !ok || stored == nil {
		return "", model.Integrity("%s: primary key is not set", c.model.QualifiedName())
	}
	pk := fmt.Sprint(stored)

	data, err := c.db.codec.Encode(doc)
	if err != nil {
		return "", err
	}
	if err := c.db.db.Set(c.key(pk), data, c.db.writeOptions()); err != nil {
		return "", fmt.Errorf("failed to store %s %s: %w", c.model.QualifiedName(), pk, err)
	}
	rec.State().Adding = false

	c.db.logger.Debug().Str("model", c.model.QualifiedName()).Str("pk", pk).Int("bytes", len(data)).Msg("record stored")
	return pk, nil
}

// Document returns the stored document of the record with primary key pk.
func (c *Collection) Document(ctx context.Context, pk any) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := c.storageKey(pk)
	if err != nil {
		return nil, err
	}

	data, closer, err := c.db.db.Get(c.key(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", c.model.QualifiedName(), key, ErrNotFound)
		}
		return nil, err
	}
	defer closer.Close()

	frame, err := c.db.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("corrupt document %s %s: %w", c.model.QualifiedName(), key, err)
	}
	return frame.Document, nil
}

// Get loads the record with primary key pk.
func (c *Collection) Get(ctx context.Context, pk any) (*model.Instance, error) {
	doc, err := c.Document(ctx, pk)
	if err != nil {
		return nil, err
	}
	return model.Decode(c.model, doc)
}

// Delete removes the record with primary key pk.
func (c *Collection) Delete(ctx context.Context, pk any) error {
	if _, err := c.Document(ctx, pk); err != nil {
		return err
	}
	key, err := c.storageKey(pk)
	if err != nil {
		return err
	}
	if err := c.db.db.Delete(c.key(key), c.db.writeOptions()); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", c.model.QualifiedName(), key, err)
	}
	c.db.logger.Debug().Str("model", c.model.QualifiedName()).Str("pk", key).Msg("record deleted")
	return nil
}

// Upsert decodes values into a record and stores it. When values carry the
// primary key of a stored record, that record is updated and keys missing
// from values keep their stored values. Otherwise a new record is created
// with defaults applied. created reports which of the two happened.
func (c *Collection) Upsert(ctx context.Context, values document.Document) (rec *model.Instance, created bool, err error) {
	decoded, err := model.Decode(c.model, values)
	if err != nil {
		return nil, false, err
	}
	attrs := decoded.Attributes()

	if pk := attrs[c.model.PrimaryKey().Attname()]; pk != nil {
		existing, err := c.Get(ctx, pk)
		switch {
		case err == nil:
			for k, v := range attrs {
				existing.Set(k, v)
			}
			if _, err := c.Put(ctx, existing); err != nil {
				return nil, false, err
			}
			return existing, false, nil
		case !errors.Is(err, ErrNotFound):
			return nil, false, err
		}
	}

	rec, err = c.model.Create(attrs)
	if err != nil {
		return nil, false, err
	}
	if _, err := c.Put(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// scan calls fn with each stored document of the collection in key order.
// Frames that fail to decode are skipped and logged.
func (c *Collection) scan(ctx context.Context, fn func(key []byte, doc document.Document) error) error {
	lower := []byte(c.prefix)
	upper := append([]byte(c.prefix[:len(c.prefix)-1]), c.prefix[len(c.prefix)-1]+1)

	iter, err := c.db.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := c.db.codec.Decode(iter.Value())
		if err != nil {
			c.db.logger.Warn().Err(err).Bytes("key", iter.Key()).Msg("skipping corrupt document")
			continue
		}
		if err := fn(iter.Key(), frame.Document); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Documents returns every stored document of the collection in key order.
func (c *Collection) Documents(ctx context.Context) ([]document.Document, error) {
	var out []document.Document
	err := c.scan(ctx, func(_ []byte, doc document.Document) error {
		out = append(out, doc)
		return nil
	})
	return out, err
}

// List loads every record of the collection in key order. Documents that
// no longer decode into the model are skipped and logged.
func (c *Collection) List(ctx context.Context) ([]*model.Instance, error) {
	var out []*model.Instance
	err := c.scan(ctx, func(key []byte, doc document.Document) error {
		inst, err := model.Decode(c.model, doc)
		if err != nil {
			c.db.logger.Warn().Err(err).Bytes("key", key).Msg("skipping undecodable document")
			return nil
		}
		out = append(out, inst)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
