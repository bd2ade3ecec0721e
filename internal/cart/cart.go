// Package cart manages the quantity-bearing cart collection. Every operation is
// a single load-mutate-save cycle against the keyed store.
package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/store"
)

// MsgAdded is the confirmation shown after a successful AddItem.
const MsgAdded = "Mahsulot savatchaga qo'shildi!"

// MsgRemoved is shown after an entry was removed with the user's consent.
const MsgRemoved = "Mahsulot savatchadan o'chirildi!"

// MaxQty caps the quantity of a single entry. Additions beyond it saturate.
const MaxQty = 9999

// Confirmer asks the user whether entry may be removed. It is modal: the
// mutation waits for its answer.
type Confirmer func(entry models.CartEntry) bool

// Always and Never are fixed answers for non-interactive callers and tests.
var (
	Always Confirmer = func(models.CartEntry) bool { return true }
	Never  Confirmer = func(models.CartEntry) bool { return false }
)

// Listener observes the cart after each successful save.
type Listener func(ctx context.Context, entries []models.CartEntry)

type Cart struct {
	items     *store.Collection[models.CartEntry]
	log       *zap.Logger
	listeners map[int]Listener
	nextID    int
}

func New(items *store.Collection[models.CartEntry], log *zap.Logger) *Cart {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cart{items: items, log: log, listeners: map[int]Listener{}}
}

// Subscribe registers l and returns a function that removes it again.
func (c *Cart) Subscribe(l Listener) (unsubscribe func()) {
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() { delete(c.listeners, id) }
}

type AddResult struct {
	Added   bool   `json:"added"`
	Qty     int    `json:"qty"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// AddItem merges qty units of ref into the cart. A qty below 1 counts as 1 and
// an entry never grows beyond MaxQty.
func (c *Cart) AddItem(ctx context.Context, ref models.ProductRef, qty int) AddResult {
	if qty < 1 {
		qty = 1
	}
	entries, err := c.load(ctx)
	if err != nil {
		return AddResult{}
	}

	var line *models.CartEntry
	if i := indexOf(entries, ref.ID); i >= 0 {
		entries[i].Qty = addQty(entries[i].Qty, qty)
		line = &entries[i]
	} else {
		entries = append(entries, models.CartEntry{
			ID:    ref.ID,
			Name:  ref.Name,
			Price: models.ParsePrice(ref.Price),
			Image: ref.Image,
			Qty:   min(qty, MaxQty),
		})
		line = &entries[len(entries)-1]
	}
	lineQty := line.Qty

	if !c.save(ctx, entries) {
		return AddResult{Count: c.TotalCount(ctx)}
	}
	c.log.Info("item added to cart", zap.Int("product_id", ref.ID), zap.Int("qty", qty))
	return AddResult{Added: true, Qty: lineQty, Count: TotalOf(entries), Message: MsgAdded}
}

// IncreaseQty adds one unit to an existing entry and reports whether anything
// changed. An entry already at MaxQty stays as it is.
func (c *Cart) IncreaseQty(ctx context.Context, id int) bool {
	entries, err := c.load(ctx)
	if err != nil {
		return false
	}
	i := indexOf(entries, id)
	if i < 0 || entries[i].Qty >= MaxQty {
		return false
	}
	entries[i].Qty++
	return c.save(ctx, entries)
}

// DecreaseQty removes one unit. Taking the last unit away removes the entry,
// which needs the user's confirmation; a declined confirmation leaves the cart
// untouched.
func (c *Cart) DecreaseQty(ctx context.Context, id int, confirm Confirmer) Outcome {
	entries, err := c.load(ctx)
	if err != nil {
		return Failed
	}
	i := indexOf(entries, id)
	if i < 0 {
		return NotFound
	}
	if entries[i].Qty > 1 {
		entries[i].Qty--
		if !c.save(ctx, entries) {
			return Failed
		}
		return Changed
	}
	return c.removeAt(ctx, entries, i, confirm)
}

// RemoveItem drops the entry for id after the user confirms.
func (c *Cart) RemoveItem(ctx context.Context, id int, confirm Confirmer) Outcome {
	entries, err := c.load(ctx)
	if err != nil {
		return Failed
	}
	i := indexOf(entries, id)
	if i < 0 {
		return NotFound
	}
	return c.removeAt(ctx, entries, i, confirm)
}

func (c *Cart) removeAt(ctx context.Context, entries []models.CartEntry, i int, confirm Confirmer) Outcome {
	if confirm == nil || !confirm(entries[i]) {
		c.log.Debug("removal declined", zap.Int("product_id", entries[i].ID))
		return Declined
	}
	id := entries[i].ID
	entries = append(entries[:i], entries[i+1:]...)
	if !c.save(ctx, entries) {
		return Failed
	}
	c.log.Info("item removed from cart", zap.Int("product_id", id))
	return Removed
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) bool {
	return c.save(ctx, []models.CartEntry{})
}

// Entries is a read-only projection; a store read error shows as an empty cart.
func (c *Cart) Entries(ctx context.Context) []models.CartEntry {
	entries, _ := c.load(ctx)
	return entries
}

// TotalCount is the number of units across all entries.
func (c *Cart) TotalCount(ctx context.Context) int {
	return TotalOf(c.Entries(ctx))
}

func (c *Cart) Badge(ctx context.Context) models.Badge {
	return models.NewBadge(c.TotalCount(ctx))
}

func TotalOf(entries []models.CartEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Qty
	}
	return total
}

// load reads the cart and repairs what a tampered or legacy document may
// contain: entries without a positive qty are dropped, duplicate ids are
// merged into the first occurrence, quantities are capped at MaxQty and
// negative prices read as 0.
func (c *Cart) load(ctx context.Context) ([]models.CartEntry, error) {
	raw, err := c.items.Load(ctx)
	if err != nil {
		return raw, err
	}
	entries := make([]models.CartEntry, 0, len(raw))
	for _, e := range raw {
		if e.Qty <= 0 {
			continue
		}
		if i := indexOf(entries, e.ID); i >= 0 {
			entries[i].Qty = addQty(entries[i].Qty, e.Qty)
			continue
		}
		e.Qty = min(e.Qty, MaxQty)
		e.Price = max(e.Price, 0)
		entries = append(entries, e)
	}
	return entries, nil
}

// addQty sums two positive quantities, saturating at MaxQty.
func addQty(a, b int) int {
	if b > MaxQty-a {
		return MaxQty
	}
	return a + b
}

func (c *Cart) save(ctx context.Context, entries []models.CartEntry) bool {
	if err := c.items.Save(ctx, entries); err != nil {
		c.log.Error("cart not saved", zap.Error(err))
		return false
	}
	for _, l := range c.listeners {
		l(ctx, entries)
	}
	return true
}

func indexOf(entries []models.CartEntry, id int) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
