// Package summary derives order totals from the cart.
package summary

import (
	"context"
	"math"

	"github.com/rafian-git/storefront-state/internal/cart"
	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/money"
)

// DefaultShippingFee is the flat fee charged on any non-empty order.
const DefaultShippingFee int64 = 30000

// Compute is the pure summary derivation. An entry without a quantity counts
// once; a negative discount counts as none.
func Compute(entries []models.CartEntry, discount, flatFee int64) models.Summary {
	if discount < 0 {
		discount = 0
	}
	var subtotal int64
	for _, e := range entries {
		subtotal = addSat(subtotal, lineTotal(e))
	}
	var shipping int64
	if subtotal > 0 {
		shipping = flatFee
	}
	total := addSat(subtotal, shipping) - discount
	if total < 0 {
		total = 0
	}
	return models.Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
		IsEmpty:  len(entries) == 0,
	}
}

// lineTotal is price·qty, saturating at math.MaxInt64. Negative prices count as 0.
func lineTotal(e models.CartEntry) int64 {
	if e.Price <= 0 {
		return 0
	}
	qty := int64(qtyOf(e))
	if e.Price > math.MaxInt64/qty {
		return math.MaxInt64
	}
	return e.Price * qty
}

// addSat adds two non-negative amounts, saturating at math.MaxInt64.
func addSat(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

func qtyOf(e models.CartEntry) int {
	if e.Qty <= 0 {
		return 1
	}
	return e.Qty
}

// Line is one row of the checkout listing.
type Line struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Qty       int    `json:"qty"`
	LineTotal int64  `json:"lineTotal"`
	Formatted string `json:"formatted"`
}

// View is an active summary display. While attached to a cart it is
// recomputed after every cart mutation.
type View struct {
	fee         int64
	discount    int64
	format      money.Formatter
	entries     []models.CartEntry
	current     models.Summary
	unsubscribe func()
}

func NewView(flatFee int64, format money.Formatter) *View {
	v := &View{fee: flatFee, format: format}
	v.current = Compute(nil, 0, flatFee)
	return v
}

// Activate computes the summary for c's current contents and keeps it in sync.
func (v *View) Activate(ctx context.Context, c *cart.Cart) models.Summary {
	if v.unsubscribe == nil {
		v.unsubscribe = c.Subscribe(func(_ context.Context, entries []models.CartEntry) {
			v.recompute(entries)
		})
	}
	v.recompute(c.Entries(ctx))
	return v.current
}

func (v *View) Deactivate() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

func (v *View) Active() bool { return v.unsubscribe != nil }

// SetDiscount applies an externally granted discount.
func (v *View) SetDiscount(discount int64) models.Summary {
	if discount < 0 {
		discount = 0
	}
	v.discount = discount
	v.recompute(v.entries)
	return v.current
}

func (v *View) Current() models.Summary { return v.current }

func (v *View) Lines() []Line {
	lines := make([]Line, 0, len(v.entries))
	for _, e := range v.entries {
		total := lineTotal(e)
		lines = append(lines, Line{
			ID:        e.ID,
			Name:      e.Name,
			Image:     e.Image,
			Qty:       qtyOf(e),
			LineTotal: total,
			Formatted: v.format.Format(total),
		})
	}
	return lines
}

// Formatted renders the totals block.
func (v *View) Formatted() map[string]string {
	return map[string]string{
		"subtotal": v.format.Format(v.current.Subtotal),
		"shipping": v.format.Format(v.current.Shipping),
		"discount": v.format.FormatDiscount(v.current.Discount),
		"total":    v.format.Format(v.current.Total),
	}
}

func (v *View) recompute(entries []models.CartEntry) {
	v.entries = append(v.entries[:0], entries...)
	v.current = Compute(v.entries, v.discount, v.fee)
}
