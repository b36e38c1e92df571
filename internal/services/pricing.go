package services

import (
	"github.com/shopspring/decimal"

	"studiorent/internal/models"
)

const daysPerWeek = 7

// ItemSubtotal is pricePerDay * quantity * days. Non-positive days yield zero.
func ItemSubtotal(item models.CartItem, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return item.PricePerDay.
		Mul(decimal.NewFromInt(int64(item.Quantity))).
		Mul(decimal.NewFromInt(int64(days)))
}

// CartSubtotal sums ItemSubtotal over items.
func CartSubtotal(items []models.CartItem, days int) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(ItemSubtotal(item, days))
	}
	return total
}

// TieredPrice prices a single unit for days, charging pricePerWeek for each
// whole week once the rental reaches seven days.
func TieredPrice(pricePerDay decimal.Decimal, pricePerWeek *decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	if pricePerWeek == nil || days < daysPerWeek {
		return pricePerDay.Mul(decimal.NewFromInt(int64(days)))
	}
	weeks := days / daysPerWeek
	remaining := days % daysPerWeek
	return pricePerWeek.Mul(decimal.NewFromInt(int64(weeks))).
		Add(pricePerDay.Mul(decimal.NewFromInt(int64(remaining))))
}

// TieredPriceForQuantity multiplies the per-unit tiered price by quantity.
func TieredPriceForQuantity(pricePerDay decimal.Decimal, pricePerWeek *decimal.Decimal, days, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return TieredPrice(pricePerDay, pricePerWeek, days).Mul(decimal.NewFromInt(int64(quantity)))
}

// QuoteLine is the priced view of one cart row.
type QuoteLine struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Quote is the priced cart for a given duration.
type Quote struct {
	Days       int             `json:"days"`
	Lines      []QuoteLine     `json:"lines"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// BuildQuote prices every line of items for days.
func BuildQuote(items []models.CartItem, days int) Quote {
	q := Quote{
		Days:     days,
		Lines:    make([]QuoteLine, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range items {
		sub := ItemSubtotal(item, days)
		q.Lines = append(q.Lines, QuoteLine{
			ID:          item.ID,
			Name:        item.Name,
			PricePerDay: item.PricePerDay,
			Quantity:    item.Quantity,
			Subtotal:    sub,
		})
		q.TotalItems += item.Quantity
		q.Subtotal = q.Subtotal.Add(sub)
	}
	return q
}
