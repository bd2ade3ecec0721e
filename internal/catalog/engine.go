// Package catalog filters and sorts a snapshot of the product listing.
package catalog

import (
	"cmp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/models"
)

type SortCriterion string

const (
	PriceAsc  SortCriterion = "price-asc"
	PriceDesc SortCriterion = "price-desc"
	Newest    SortCriterion = "newest"
)

// Result is what a listing needs after a filter change.
type Result struct {
	VisibleIDs []int `json:"visibleIds"`
	Count      int   `json:"count"`
	IsEmpty    bool  `json:"isEmpty"`
	// Sort is the active sort criterion, empty for catalog order.
	Sort SortCriterion `json:"sort,omitempty"`
	// ExpressionError explains why the expression facet was ignored.
	ExpressionError string `json:"expressionError,omitempty"`
}

// Engine holds one listing view: a read-only catalog snapshot, the current
// filter state, the active sort and the items currently visible, in display
// order.
type Engine struct {
	items   []models.CatalogItem
	state   models.FilterState
	sort    SortCriterion
	visible []models.CatalogItem
	exprs   *expressions
	log     *zap.Logger
}

type Option func(*Engine)

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine snapshots items. Later changes to the caller's slice are not seen.
func NewEngine(items []models.CatalogItem, opts ...Option) *Engine {
	e := &Engine{
		items: slices.Clone(items),
		state: models.InitialFilter(),
		exprs: newExpressions(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.visible = slices.Clone(e.items)
	return e
}

// Snapshot returns a copy of the catalog the engine works on.
func (e *Engine) Snapshot() []models.CatalogItem { return slices.Clone(e.items) }

// State returns a copy of the active filter state.
func (e *Engine) State() models.FilterState { return e.state.Clone() }

// Filter returns the items matching every active facet of state, in snapshot order.
// It does not touch the engine's view.
func (e *Engine) Filter(state models.FilterState) []models.CatalogItem {
	out, _ := e.filter(state)
	return out
}

func (e *Engine) filter(state models.FilterState) ([]models.CatalogItem, error) {
	search := strings.ToLower(strings.TrimSpace(state.Search))
	floor, hasFloor := state.RatingFloor()
	match, exprErr := e.exprs.predicate(state.Expression)
	if exprErr != nil {
		e.log.Warn("expression facet ignored", zap.String("expression", state.Expression), zap.Error(exprErr))
	}

	out := make([]models.CatalogItem, 0, len(e.items))
	for _, it := range e.items {
		if search != "" && !strings.Contains(strings.ToLower(it.Name), search) {
			continue
		}
		if state.Category != "" && state.Category != models.AllCategories && it.Category != state.Category {
			continue
		}
		if len(state.Categories) > 0 && !slices.Contains(state.Categories, it.Category) {
			continue
		}
		if len(state.PriceRanges) > 0 && !inAnyRange(state.PriceRanges, it.Price) {
			continue
		}
		if len(state.Colors) > 0 && !slices.Contains(state.Colors, it.Color) {
			continue
		}
		if hasFloor && it.Rating < floor {
			continue
		}
		if match != nil && !match(it) {
			continue
		}
		out = append(out, it)
	}
	return out, exprErr
}

func inAnyRange(ranges []models.PriceRange, price int64) bool {
	for _, r := range ranges {
		if r.Contains(price) {
			return true
		}
	}
	return false
}

// Apply makes state the active filter. Filtering and sorting are independent:
// the active sort, if any, is applied to the new visible set.
func (e *Engine) Apply(state models.FilterState) Result {
	e.state = state.Clone()
	visible, err := e.filter(e.state)
	e.visible = visible
	e.reorder()
	r := e.result()
	if err != nil {
		r.ExpressionError = err.Error()
	}
	return r
}

// Clear resets every facet and the sort. Equivalent to a listing that was
// never filtered or sorted.
func (e *Engine) Clear() Result {
	e.sort = ""
	return e.Apply(models.InitialFilter())
}

// Current reports the view without changing it.
func (e *Engine) Current() Result { return e.result() }

func (e *Engine) result() Result {
	ids := make([]int, len(e.visible))
	for i, it := range e.visible {
		ids[i] = it.ID
	}
	return Result{VisibleIDs: ids, Count: len(ids), IsEmpty: len(ids) == 0, Sort: e.sort}
}

// Visibility projects the current filter onto every snapshot item.
func (e *Engine) Visibility() map[int]bool {
	out := make(map[int]bool, len(e.items))
	for _, it := range e.items {
		out[it.ID] = false
	}
	for _, it := range e.visible {
		out[it.ID] = true
	}
	return out
}

// Sort makes criterion the active sort, reorders the visible items by it and
// returns their ids. Ties keep their previous relative order. An unknown
// criterion changes nothing.
func (e *Engine) Sort(criterion SortCriterion) []int {
	switch criterion {
	case PriceAsc, PriceDesc, Newest:
		e.sort = criterion
		e.reorder()
	default:
		e.log.Debug("unknown sort criterion", zap.String("criterion", string(criterion)))
	}
	return e.result().VisibleIDs
}

func (e *Engine) reorder() {
	switch e.sort {
	case PriceAsc:
		slices.SortStableFunc(e.visible, func(a, b models.CatalogItem) int { return cmp.Compare(a.Price, b.Price) })
	case PriceDesc:
		slices.SortStableFunc(e.visible, func(a, b models.CatalogItem) int { return cmp.Compare(b.Price, a.Price) })
	case Newest:
		slices.SortStableFunc(e.visible, func(a, b models.CatalogItem) int { return strings.Compare(b.CreatedAt, a.CreatedAt) })
	}
}
