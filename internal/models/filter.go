package models

import "math"

// AllCategories is the single-select category value that disables the facet.
const AllCategories = "all"

// PriceRange is an inclusive price band. A zero Max means the band has no
// upper bound.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (r PriceRange) Contains(price int64) bool {
	upper := r.Max
	if upper == 0 {
		upper = math.MaxInt64
	}
	return price >= r.Min && price <= upper
}

type FilterState struct {
	Search      string       `json:"search"`
	Category    string       `json:"category"`
	Categories  []string     `json:"categories"`
	PriceRanges []PriceRange `json:"priceRanges"`
	Colors      []string     `json:"colors"`
	Ratings     []float64    `json:"ratings"`
	// Expression is an optional boolean expression over the item fields.
	Expression string `json:"expression,omitempty"`
}

// InitialFilter is the state of a listing nobody has filtered yet.
func InitialFilter() FilterState {
	return FilterState{
		Category:    AllCategories,
		Categories:  []string{},
		PriceRanges: []PriceRange{},
		Colors:      []string{},
		Ratings:     []float64{},
	}
}

// Clone returns a deep copy so callers can keep mutating their own state.
func (f FilterState) Clone() FilterState {
	out := f
	out.Categories = append([]string{}, f.Categories...)
	out.PriceRanges = append([]PriceRange{}, f.PriceRanges...)
	out.Colors = append([]string{}, f.Colors...)
	out.Ratings = append([]float64{}, f.Ratings...)
	return out
}

// RatingFloor returns the minimum of the active rating thresholds.
func (f FilterState) RatingFloor() (float64, bool) {
	if len(f.Ratings) == 0 {
		return 0, false
	}
	floor := f.Ratings[0]
	for _, r := range f.Ratings[1:] {
		if r < floor {
			floor = r
		}
	}
	return floor, true
}
