package models

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

// ErrInvalidRange is returned when a range ends before it starts or a date cannot be parsed.
var ErrInvalidRange = errors.New("invalid date range")

// AvailabilityStatus is the booking state of a resource on a single calendar day.
type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusBooked      AvailabilityStatus = "booked"
	StatusMaintenance AvailabilityStatus = "maintenance"
)

// Valid reports whether s is one of the known statuses.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusMaintenance:
		return true
	}
	return false
}

// AvailabilityEntry is one stored (resource, day) status.
type AvailabilityEntry struct {
	ResourceID string             `json:"resource_id"`
	Date       string             `json:"date"`
	Status     AvailabilityStatus `json:"status"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// DayStatus is a single row of a rendered calendar.
type DayStatus struct {
	Date   string             `json:"date"`
	Status AvailabilityStatus `json:"status"`
}

// DateRange is an inclusive span of calendar dates normalised to UTC midnight.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange truncates both ends to UTC midnight and checks From <= To.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: truncateDay(from), To: truncateDay(to)}
	if r.To.Before(r.From) {
		return DateRange{}, ErrInvalidRange
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD strings.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	return NewDateRange(f, t)
}

// Days is the inclusive day count; a same-day range is one day.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// Contains reports whether the given day lies within the range.
func (r DateRange) Contains(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(r.From) && !d.After(r.To)
}

// Dates lists every day of the range as YYYY-MM-DD.
func (r DateRange) Dates() []string {
	out := make([]string, 0, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(dateLayout))
	}
	return out
}

// FormatDate renders a day the way availability entries are keyed.
func FormatDate(t time.Time) string {
	return truncateDay(t).Format(dateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
