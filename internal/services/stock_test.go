package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studiorent/internal/models"
)

func TestCanAddMore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stock   *int
		current int
		want    bool
	}{
		{"unconstrained", nil, 1000, true},
		{"below stock", models.IntPtr(2), 1, true},
		{"at stock", models.IntPtr(2), 2, false},
		{"above stock", models.IntPtr(2), 3, false},
		{"zero stock empty cart", models.IntPtr(0), 0, false},
		{"first unit", models.IntPtr(1), 0, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanAddMore(tt.stock, tt.current))
		})
	}
}

func TestClampQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requested int
		stock     *int
		want      int
	}{
		{"within stock", 3, models.IntPtr(5), 3},
		{"above stock", 9, models.IntPtr(5), 5},
		{"unconstrained", 42, nil, 42},
		{"zero requested", 0, models.IntPtr(5), 1},
		{"negative requested", -3, nil, 1},
		{"zero stock floors at one", 4, models.IntPtr(0), 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClampQuantity(tt.requested, tt.stock))
		})
	}
}

func TestIsRentable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRentable(models.Equipment{ID: "a"}))
	assert.True(t, IsRentable(models.Equipment{ID: "a", Status: models.EquipmentAvailable, StockQuantity: models.IntPtr(1)}))
	assert.False(t, IsRentable(models.Equipment{ID: "a", StockQuantity: models.IntPtr(0)}))
	assert.False(t, IsRentable(models.Equipment{ID: "a", Status: models.EquipmentMaintenance}))
	assert.False(t, IsRentable(models.Equipment{ID: "a", Status: models.EquipmentRetired}))
	assert.False(t, IsRentable(models.Equipment{ID: "a", Status: models.EquipmentRented}))
}
