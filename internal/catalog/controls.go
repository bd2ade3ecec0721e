package catalog

import (
	"slices"
	"strings"

	"github.com/rafian-git/storefront-state/internal/models"
)

// The methods below mirror the listing controls: each one edits a single
// facet of the active state and re-applies it.

// SetSearch applies the search box text.
func (e *Engine) SetSearch(query string) Result {
	s := e.State()
	s.Search = strings.ToLower(strings.TrimSpace(query))
	return e.Apply(s)
}

// SetCategory applies a category chip; "all" lifts the constraint.
func (e *Engine) SetCategory(category string) Result {
	s := e.State()
	if category == "" {
		category = models.AllCategories
	}
	s.Category = category
	return e.Apply(s)
}

func (e *Engine) ToggleCategory(category string, checked bool) Result {
	s := e.State()
	s.Categories = toggle(s.Categories, category, checked)
	return e.Apply(s)
}

func (e *Engine) TogglePriceRange(r models.PriceRange, checked bool) Result {
	s := e.State()
	s.PriceRanges = toggle(s.PriceRanges, r, checked)
	return e.Apply(s)
}

// ToggleColor flips a color swatch.
func (e *Engine) ToggleColor(color string) Result {
	s := e.State()
	s.Colors = toggle(s.Colors, color, !slices.Contains(s.Colors, color))
	return e.Apply(s)
}

func (e *Engine) ToggleRating(threshold float64, checked bool) Result {
	s := e.State()
	s.Ratings = toggle(s.Ratings, threshold, checked)
	return e.Apply(s)
}

func (e *Engine) SetExpression(expression string) Result {
	s := e.State()
	s.Expression = strings.TrimSpace(expression)
	return e.Apply(s)
}

// toggle adds v when on (once) and removes every occurrence of v when off.
func toggle[T comparable](list []T, v T, on bool) []T {
	if on {
		if slices.Contains(list, v) {
			return list
		}
		return append(list, v)
	}
	return slices.DeleteFunc(list, func(x T) bool { return x == v })
}
