package httpserver

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/rafian-git/storefront-state/internal/cart"
	"github.com/rafian-git/storefront-state/internal/catalog"
	"github.com/rafian-git/storefront-state/internal/models"
)

// productDTO is the product reference a card or product page sends. The price
// may be a number or the display string shown on the card.
type productDTO struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price json.RawMessage `json:"price"`
	Image string          `json:"image"`
}

func (d productDTO) validate() error {
	if d.ID <= 0 {
		return errors.New("id is required")
	}
	return nil
}

func (d productDTO) ref() models.ProductRef {
	return models.ProductRef{ID: d.ID, Name: d.Name, Price: priceText(d.Price), Image: d.Image}
}

func priceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

type addItemDTO struct {
	productDTO
	Qty int `json:"qty"`
}

func (d addItemDTO) validate() error {
	if err := d.productDTO.validate(); err != nil {
		return err
	}
	if d.Qty > cart.MaxQty {
		return errors.Errorf("qty out of range: %d", d.Qty)
	}
	return nil
}

type statesDTO struct {
	IDs []int `json:"ids"`
}

type sortDTO struct {
	Criterion catalog.SortCriterion `json:"criterion"`
}

func (d sortDTO) validate() error {
	switch d.Criterion {
	case catalog.PriceAsc, catalog.PriceDesc, catalog.Newest:
		return nil
	}
	return errors.Errorf("unknown sort criterion %q", d.Criterion)
}

type discountDTO struct {
	Discount int64 `json:"discount"`
}

func (d discountDTO) validate() error {
	if d.Discount < 0 {
		return errors.Errorf("discount out of range: %d", d.Discount)
	}
	return nil
}

// controlDTO drives one listing control, the way a single click or keystroke
// does. Which fields matter depends on Control.
type controlDTO struct {
	Control   string             `json:"control"`
	Value     string             `json:"value"`
	Checked   bool               `json:"checked"`
	Range     *models.PriceRange `json:"range"`
	Threshold float64            `json:"threshold"`
}

func (d controlDTO) validate() error {
	switch d.Control {
	case "search", "category", "category-toggle", "color", "expression":
		return nil
	case "rating":
		if d.Threshold < 0 || d.Threshold > 5 {
			return errors.Errorf("rating threshold out of range: %v", d.Threshold)
		}
		return nil
	case "price-range":
		if d.Range == nil || d.Range.Min < 0 || d.Range.Max < 0 {
			return errors.New("price range is required")
		}
		return nil
	}
	return errors.Errorf("unknown control %q", d.Control)
}

func (d controlDTO) apply(e *catalog.Engine) catalog.Result {
	switch d.Control {
	case "search":
		return e.SetSearch(d.Value)
	case "category":
		return e.SetCategory(d.Value)
	case "category-toggle":
		return e.ToggleCategory(d.Value, d.Checked)
	case "color":
		return e.ToggleColor(d.Value)
	case "expression":
		return e.SetExpression(d.Value)
	case "rating":
		return e.ToggleRating(d.Threshold, d.Checked)
	default:
		return e.TogglePriceRange(*d.Range, d.Checked)
	}
}
