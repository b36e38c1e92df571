package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquipmentStatus is the catalog lifecycle flag of a rentable item.
type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentRented      EquipmentStatus = "rented"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentRetired     EquipmentStatus = "retired"
)

// Equipment is a catalog record as supplied by the catalog data source.
type Equipment struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Brand         string           `json:"brand,omitempty"`
	Category      string           `json:"category,omitempty"`
	Description   string           `json:"description,omitempty"`
	PricePerDay   decimal.Decimal  `json:"price_per_day"`
	PricePerWeek  *decimal.Decimal `json:"price_per_week,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
	Status        EquipmentStatus  `json:"status"`
	ImageURL      string           `json:"image_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// EquipmentForm is the admin payload for creating or replacing a catalog record.
type EquipmentForm struct {
	Name          string           `json:"name" binding:"required"`
	Brand         string           `json:"brand"`
	Category      string           `json:"category"`
	Description   string           `json:"description"`
	PricePerDay   decimal.Decimal  `json:"price_per_day"`
	PricePerWeek  *decimal.Decimal `json:"price_per_week"`
	StockQuantity *int             `json:"stock_quantity" binding:"omitempty,gte=0"`
	Status        EquipmentStatus  `json:"status" binding:"omitempty,oneof=available rented maintenance retired"`
	ImageURL      string           `json:"image_url"`
}

// Equipment builds the catalog record for id. An empty status means available.
func (f EquipmentForm) Equipment(id string) Equipment {
	status := f.Status
	if status == "" {
		status = EquipmentAvailable
	}
	return Equipment{
		ID:            id,
		Name:          f.Name,
		Brand:         f.Brand,
		Category:      f.Category,
		Description:   f.Description,
		PricePerDay:   f.PricePerDay,
		PricePerWeek:  f.PricePerWeek,
		StockQuantity: f.StockQuantity,
		Status:        status,
		ImageURL:      f.ImageURL,
	}
}
