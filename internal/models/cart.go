package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CartItem is one rentable equipment line in the active quote.
//
// The JSON shape is the persisted wire format of the cart and must round-trip
// without transformation.
type CartItem struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Brand         string          `json:"brand,omitempty"`
	PricePerDay   decimal.Decimal `json:"pricePerDay"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Quantity      int             `json:"quantity" validate:"gte=1"`
	StockQuantity *int            `json:"stockQuantity,omitempty" validate:"omitempty,gte=0"`
}

// MarshalJSON writes pricePerDay as a JSON number. Reading accepts a number
// or a quoted decimal.
func (i CartItem) MarshalJSON() ([]byte, error) {
	type wire CartItem
	return json.Marshal(struct {
		wire
		PricePerDay json.RawMessage `json:"pricePerDay"`
	}{wire(i), json.RawMessage(i.PricePerDay.String())})
}

// Clone returns a deep copy so callers never share the stock pointer with the store.
func (i CartItem) Clone() CartItem {
	cp := i
	if i.StockQuantity != nil {
		stock := *i.StockQuantity
		cp.StockQuantity = &stock
	}
	return cp
}

// NewCartItem builds a quantity-1 line from a catalog record.
func NewCartItem(e Equipment) CartItem {
	item := CartItem{
		ID:          e.ID,
		Name:        e.Name,
		Brand:       e.Brand,
		PricePerDay: e.PricePerDay,
		ImageURL:    e.ImageURL,
		Quantity:    1,
	}
	if e.StockQuantity != nil {
		stock := *e.StockQuantity
		item.StockQuantity = &stock
	}
	return item
}

// IntPtr is a small helper for optional stock quantities.
func IntPtr(v int) *int { return &v }
