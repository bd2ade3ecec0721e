package store

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Record is a single JSON document under one key. It follows the same
// fail-soft rules as Collection: a missing, empty, null or malformed document
// reads as absent, a backend error is returned.
type Record[T any] struct {
	backend Backend
	key     string
	log     *zap.Logger
}

func NewRecord[T any](backend Backend, key string, log *zap.Logger) *Record[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Record[T]{backend: backend, key: key, log: log}
}

func (r *Record[T]) Key() string { return r.key }

// Load reports the stored value and whether one is present.
func (r *Record[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T
	raw, found, err := r.backend.Get(ctx, r.key)
	if err != nil {
		r.log.Warn("keyed store read failed", zap.String("key", r.key), zap.Error(err))
		return zero, false, errors.Wrapf(err, "read %q", r.key)
	}
	raw = bytes.TrimSpace(raw)
	if !found || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		r.log.Warn("keyed store document malformed, treating as absent",
			zap.String("key", r.key), zap.Error(err))
		return zero, false, nil
	}
	return v, true, nil
}

func (r *Record[T]) Save(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", r.key)
	}
	if err := r.backend.Set(ctx, r.key, raw); err != nil {
		r.log.Error("keyed store write failed", zap.String("key", r.key), zap.Error(err))
		return errors.Wrapf(err, "write %q", r.key)
	}
	return nil
}

// Clear stores null, which reads back as absent.
func (r *Record[T]) Clear(ctx context.Context) error {
	if err := r.backend.Set(ctx, r.key, []byte("null")); err != nil {
		return errors.Wrapf(err, "write %q", r.key)
	}
	return nil
}
