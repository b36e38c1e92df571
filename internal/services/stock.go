package services

import "studiorent/internal/models"

// CanAddMore reports whether one more unit fits under the stock ceiling.
// A nil stock is unconstrained; a stock of 0 never admits anything.
func CanAddMore(stockQuantity *int, currentCartQuantity int) bool {
	if stockQuantity == nil {
		return true
	}
	return currentCartQuantity < *stockQuantity
}

// ClampQuantity returns max(1, min(requested, stock)), with a nil stock
// leaving requested untouched.
func ClampQuantity(requested int, stockQuantity *int) int {
	q := requested
	if stockQuantity != nil && *stockQuantity < q {
		q = *stockQuantity
	}
	if q < 1 {
		q = 1
	}
	return q
}

// IsRentable is the status gate. Equipment with an empty status is treated as available.
func IsRentable(e models.Equipment) bool {
	if e.Status != "" && e.Status != models.EquipmentAvailable {
		return false
	}
	return e.StockQuantity == nil || *e.StockQuantity > 0
}
