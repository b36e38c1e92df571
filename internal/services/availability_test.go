package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"studiorent/internal/models"
)

func TestAvailabilityService_CalendarAndRange(t *testing.T) {
	db := newTestDB(t, cam1())
	as := NewAvailabilityService(db, zaptest.NewLogger(t))

	require.NoError(t, as.MarkRange("cam1", mustRange(t, "2026-07-03", "2026-07-04"), models.StatusBooked))

	days, err := as.Calendar("cam1", mustRange(t, "2026-07-01", "2026-07-05"))
	require.NoError(t, err)
	require.Len(t, days, 5)
	assert.Equal(t, "2026-07-01", days[0].Date)
	assert.Equal(t, models.StatusBooked, days[2].Status)

	ok, err := as.IsRangeAvailable("cam1", mustRange(t, "2026-07-01", "2026-07-02"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = as.IsRangeAvailable("cam1", mustRange(t, "2026-07-02", "2026-07-03"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = as.IsRangeAvailable("studio-a", mustRange(t, "2026-07-02", "2026-07-03"))
	require.NoError(t, err)
	assert.True(t, ok, "unknown resources have no blocked days")
}

func TestAvailabilityService_RangeTooLong(t *testing.T) {
	as := NewAvailabilityService(newTestDB(t), nil)
	_, err := as.Calendar("cam1", mustRange(t, "2026-01-01", "2027-06-01"))
	assert.ErrorIs(t, err, ErrRangeTooLong)
	assert.ErrorIs(t, as.MarkRange("cam1", mustRange(t, "2026-01-01", "2027-06-01"), models.StatusBooked), ErrRangeTooLong)
}

func TestAvailabilityService_QuoteRange(t *testing.T) {
	cam := cam1()
	cam.PricePerWeek = dp(6000)
	db := newTestDB(t, cam)
	as := NewAvailabilityService(db, zaptest.NewLogger(t))

	q, err := as.QuoteRange("cam1", mustRange(t, "2026-08-01", "2026-08-10"), 5)
	require.NoError(t, err)
	assert.Equal(t, 10, q.Days)
	assert.Equal(t, 2, q.Quantity, "clamped to stock")
	assertDecimal(t, 9000, q.UnitTotal)
	assertDecimal(t, 18000, q.Total)
	assert.True(t, q.Available)

	require.NoError(t, as.MarkRange("cam1", mustRange(t, "2026-08-05", "2026-08-05"), models.StatusMaintenance))
	q, err = as.QuoteRange("cam1", mustRange(t, "2026-08-01", "2026-08-10"), 1)
	require.NoError(t, err)
	assert.False(t, q.Available)

	_, err = as.QuoteRange("ghost", mustRange(t, "2026-08-01", "2026-08-02"), 1)
	assert.ErrorIs(t, err, ErrEquipmentNotFound)
}
