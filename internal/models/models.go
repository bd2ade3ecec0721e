package models

import "strconv"

// CatalogItem is one product as rendered on a listing page. It is read-only
// for every component in this module.
type CatalogItem struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Price     int64   `json:"price"`
	Image     string  `json:"image"`
	Category  string  `json:"category"`
	Color     string  `json:"color,omitempty"`
	Rating    float64 `json:"rating"`
	CreatedAt string  `json:"createdAt"`
}

// Ref captures the item the way a card exposes it, with the price as display text.
func (c CatalogItem) Ref() ProductRef {
	return ProductRef{
		ID:    c.ID,
		Name:  c.Name,
		Price: strconv.FormatInt(c.Price, 10),
		Image: c.Image,
	}
}

// ProductRef is a product reference captured from a display element.
// Price is whatever the element shows, e.g. "1 200 000 so'm".
type ProductRef struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Image string `json:"image"`
}

type CartEntry struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image"`
	Qty   int    `json:"qty"`
}

type FavoriteEntry struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price Price  `json:"price"`
	Image string `json:"image"`
}

// Summary is the derived order summary. It is never persisted.
type Summary struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
	IsEmpty  bool  `json:"isEmpty"`
}

// Badge is the projection behind a count indicator in the page header.
type Badge struct {
	Count  int  `json:"count"`
	Hidden bool `json:"hidden"`
}

func NewBadge(count int) Badge {
	return Badge{Count: count, Hidden: count == 0}
}
