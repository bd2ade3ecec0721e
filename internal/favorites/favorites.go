// Package favorites keeps the set of liked products.
package favorites

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/store"
)

type State int

const (
	Added State = iota + 1
	Removed
	// Unchanged is reported when the store refused the write.
	Unchanged
)

func (s State) String() string {
	switch s {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Glyph is the heart shown on a card's favorite control for this state.
func (s State) Glyph() string {
	if s == Added {
		return "♥"
	}
	return "♡"
}

// ToggleResult tells the caller how to repaint: the card control follows
// State, and a liked-products listing reveals its empty state when Empty.
type ToggleResult struct {
	State State `json:"state"`
	Count int   `json:"count"`
	Empty bool  `json:"empty"`
}

type Favorites struct {
	items *store.Collection[models.FavoriteEntry]
	log   *zap.Logger
}

func New(items *store.Collection[models.FavoriteEntry], log *zap.Logger) *Favorites {
	if log == nil {
		log = zap.NewNop()
	}
	return &Favorites{items: items, log: log}
}

// Toggle flips membership of ref. Applying it twice restores the original set.
// A failed store read reports Unchanged and writes nothing.
func (f *Favorites) Toggle(ctx context.Context, ref models.ProductRef) ToggleResult {
	entries, err := f.load(ctx)
	if err != nil {
		return f.unchanged(ctx, err)
	}
	if i := indexOf(entries, ref.ID); i >= 0 {
		entries = append(entries[:i], entries[i+1:]...)
		if err := f.items.Save(ctx, entries); err != nil {
			return f.unchanged(ctx, err)
		}
		f.log.Info("favorite removed", zap.Int("product_id", ref.ID))
		return ToggleResult{State: Removed, Count: len(entries), Empty: len(entries) == 0}
	}

	entries = append(entries, models.FavoriteEntry{
		ID:    ref.ID,
		Name:  ref.Name,
		Price: models.Price(models.ParsePrice(ref.Price)),
		Image: ref.Image,
	})
	if err := f.items.Save(ctx, entries); err != nil {
		return f.unchanged(ctx, err)
	}
	f.log.Info("favorite added", zap.Int("product_id", ref.ID))
	return ToggleResult{State: Added, Count: len(entries)}
}

func (f *Favorites) unchanged(ctx context.Context, err error) ToggleResult {
	f.log.Error("favorites not changed", zap.Error(err))
	n := f.Count(ctx)
	return ToggleResult{State: Unchanged, Count: n, Empty: n == 0}
}

func (f *Favorites) IsFavorite(ctx context.Context, id int) bool {
	return indexOf(f.List(ctx), id) >= 0
}

func (f *Favorites) Count(ctx context.Context) int {
	return len(f.List(ctx))
}

func (f *Favorites) Badge(ctx context.Context) models.Badge {
	return models.NewBadge(f.Count(ctx))
}

// List is a read-only projection; a store read error shows as no favorites.
func (f *Favorites) List(ctx context.Context) []models.FavoriteEntry {
	entries, _ := f.load(ctx)
	return entries
}

// States reports membership for every id with a single read, for repainting
// all card controls after a re-render.
func (f *Favorites) States(ctx context.Context, ids []int) map[int]bool {
	entries := f.List(ctx)
	set := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		set[e.ID] = struct{}{}
	}
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		_, ok := set[id]
		out[id] = ok
	}
	return out
}

// load drops entries without an id and keeps the first of any duplicates.
func (f *Favorites) load(ctx context.Context) ([]models.FavoriteEntry, error) {
	raw, err := f.items.Load(ctx)
	if err != nil {
		return raw, err
	}
	entries := make([]models.FavoriteEntry, 0, len(raw))
	for _, e := range raw {
		if e.ID == 0 || indexOf(entries, e.ID) >= 0 {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func indexOf(entries []models.FavoriteEntry, id int) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
