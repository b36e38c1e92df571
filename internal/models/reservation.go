package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle of a submitted quote.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a submitted cart snapshot plus contact metadata.
type Reservation struct {
	ID                int               `json:"id"`
	ReservationNumber string            `json:"reservation_number"`
	SessionID         string            `json:"session_id"`
	CustomerName      string            `json:"customer_name"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone"`
	Company           string            `json:"company,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	AdminNotes        string            `json:"admin_notes,omitempty"`
	Range             *DateRange        `json:"range,omitempty"`
	Days              int               `json:"days"`
	Items             []CartItem        `json:"items"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	Status            ReservationStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ReservationForm is the checkout payload. Either From/To or Days must be supplied.
type ReservationForm struct {
	CustomerName string `json:"customer_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	Company      string `json:"company"`
	Notes        string `json:"notes" binding:"max=2000"`
	From         string `json:"from" binding:"required_with=To"`
	To           string `json:"to" binding:"required_with=From"`
	Days         int    `json:"days" binding:"omitempty,gte=1"`
}

// ReservationStatusForm is the admin payload for moving a reservation along.
type ReservationStatusForm struct {
	Status     ReservationStatus `json:"status" binding:"required,oneof=pending confirmed cancelled"`
	AdminNotes string            `json:"admin_notes"`
}
