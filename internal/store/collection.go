package store

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Collection is a named, ordered collection of records that is always
// replaced as a whole. Writers follow a last-writer-wins policy; callers that
// share a key must serialize their load-mutate-save cycles themselves.
type Collection[T any] struct {
	backend Backend
	key     string
	log     *zap.Logger
}

func NewCollection[T any](backend Backend, key string, log *zap.Logger) *Collection[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection[T]{backend: backend, key: key, log: log}
}

func (c *Collection[T]) Key() string { return c.key }

// Load reads the collection. A missing key or a document that is not a JSON
// array of T yields an empty collection and no error. A backend read error is
// returned alongside an empty collection: the stored document may still be
// intact, so callers must not write back what they derived from it.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, found, err := c.backend.Get(ctx, c.key)
	if err != nil {
		c.log.Warn("keyed store read failed", zap.String("key", c.key), zap.Error(err))
		return []T{}, errors.Wrapf(err, "read %q", c.key)
	}
	if !found || len(raw) == 0 {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		c.log.Warn("keyed store document malformed, using empty collection",
			zap.String("key", c.key), zap.Error(err))
		return []T{}, nil
	}
	if records == nil {
		return []T{}, nil
	}
	return records, nil
}

// Peek is Load for read-only projections: a read error degrades to empty.
func (c *Collection[T]) Peek(ctx context.Context) []T {
	records, _ := c.Load(ctx)
	return records
}

// Save overwrites the stored collection with records.
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return errors.Wrapf(err, "encode %q", c.key)
	}
	if err := c.backend.Set(ctx, c.key, raw); err != nil {
		c.log.Error("keyed store write failed", zap.String("key", c.key), zap.Error(err))
		return errors.Wrapf(err, "write %q", c.key)
	}
	return nil
}

func (c *Collection[T]) Clear(ctx context.Context) error {
	return c.Save(ctx, []T{})
}
