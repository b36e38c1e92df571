package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"studiorent/internal/database"
	"studiorent/internal/models"
)

// MaxCalendarDays caps how many days a single calendar or quote request may span.
const MaxCalendarDays = 366

// ErrRangeTooLong is returned for calendar queries spanning more than MaxCalendarDays.
var ErrRangeTooLong = fmt.Errorf("date range longer than %d days", MaxCalendarDays)

// AvailabilityService answers calendar and range-pricing questions for a resource.
type AvailabilityService struct {
	db     database.DBInterface
	logger *zap.Logger
}

// NewAvailabilityService reads and writes calendars through db.
func NewAvailabilityService(db database.DBInterface, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{db: db, logger: logger}
}

func checkRange(r models.DateRange) error {
	if r.Days() > MaxCalendarDays {
		return ErrRangeTooLong
	}
	return nil
}

// Calendar lists the status of every day in r.
func (as *AvailabilityService) Calendar(resourceID string, r models.DateRange) ([]models.DayStatus, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	return as.db.GetAvailability(resourceID, r)
}

// IsRangeAvailable reports whether no day in r is booked or in maintenance.
func (as *AvailabilityService) IsRangeAvailable(resourceID string, r models.DateRange) (bool, error) {
	days, err := as.Calendar(resourceID, r)
	if err != nil {
		return false, err
	}
	for _, d := range days {
		if d.Status != models.StatusAvailable {
			return false, nil
		}
	}
	return true, nil
}

// RangeQuote is the tiered price of renting one catalog item over a range.
type RangeQuote struct {
	EquipmentID  string           `json:"equipment_id"`
	Days         int              `json:"days"`
	Quantity     int              `json:"quantity"`
	PricePerDay  decimal.Decimal  `json:"price_per_day"`
	PricePerWeek *decimal.Decimal `json:"price_per_week,omitempty"`
	UnitTotal    decimal.Decimal  `json:"unit_total"`
	Total        decimal.Decimal  `json:"total"`
	Available    bool             `json:"available"`
}

// QuoteRange prices equipmentID over r with weekly tiering. quantity is
// clamped to the item's stock.
func (as *AvailabilityService) QuoteRange(equipmentID string, r models.DateRange, quantity int) (*RangeQuote, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	e, err := as.db.GetEquipmentByID(equipmentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrEquipmentNotFound
	}
	if err != nil {
		return nil, err
	}
	available, err := as.IsRangeAvailable(equipmentID, r)
	if err != nil {
		return nil, err
	}

	qty := ClampQuantity(quantity, e.StockQuantity)
	days := r.Days()
	return &RangeQuote{
		EquipmentID:  e.ID,
		Days:         days,
		Quantity:     qty,
		PricePerDay:  e.PricePerDay,
		PricePerWeek: e.PricePerWeek,
		UnitTotal:    TieredPrice(e.PricePerDay, e.PricePerWeek, days),
		Total:        TieredPriceForQuantity(e.PricePerDay, e.PricePerWeek, days, qty),
		Available:    available && IsRentable(*e),
	}, nil
}

// MarkRange is the admin override for a resource's calendar.
func (as *AvailabilityService) MarkRange(resourceID string, r models.DateRange, status models.AvailabilityStatus) error {
	if err := checkRange(r); err != nil {
		return err
	}
	if err := as.db.SetAvailability(resourceID, r, status); err != nil {
		return err
	}
	as.logger.Info("AvailabilityService.MarkRange",
		zap.String("resource", resourceID),
		zap.String("from", models.FormatDate(r.From)),
		zap.String("to", models.FormatDate(r.To)),
		zap.String("status", string(status)))
	return nil
}
