// Package selected remembers the product a visitor opened last, so the
// product page can render it.
package selected

import (
	"context"

	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/store"
)

type Selected struct {
	rec *store.Record[models.ProductRef]
	log *zap.Logger
}

func New(rec *store.Record[models.ProductRef], log *zap.Logger) *Selected {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selected{rec: rec, log: log}
}

// Set replaces the selection with ref.
func (s *Selected) Set(ctx context.Context, ref models.ProductRef) error {
	if err := s.rec.Save(ctx, ref); err != nil {
		return err
	}
	s.log.Debug("product selected", zap.Int("product_id", ref.ID))
	return nil
}

// Get returns the selected product. Nothing selected, an unreadable store and
// a stored reference without an id all report ok=false; the product page
// then keeps its defaults.
func (s *Selected) Get(ctx context.Context) (ref models.ProductRef, ok bool) {
	ref, ok, err := s.rec.Load(ctx)
	if err != nil || !ok || ref.ID <= 0 {
		return models.ProductRef{}, false
	}
	return ref, true
}

func (s *Selected) Clear(ctx context.Context) error {
	return s.rec.Clear(ctx)
}
