package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studiorent/internal/database"
	"studiorent/internal/models"
)

const adminKeyHeader = "X-Admin-Key"

// AuthMiddleware guards admin routes with a bcrypt-hashed shared key.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(h.adminKeyHash) == 0 {
			h.security.LogSecurityEvent("ADMIN_DISABLED", c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "admin api disabled"})
			return
		}
		key := c.GetHeader(adminKeyHeader)
		if key == "" || !CheckKeyHash(key, h.adminKeyHash) {
			h.security.LogSecurityEvent("ADMIN_AUTH_FAILED", c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid admin key"})
			return
		}
		c.Next()
	}
}

// CheckKeyHash reports whether key matches the bcrypt hash.
func CheckKeyHash(key string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil
}

// UpsertEquipment creates or replaces a catalog entry.
func (h *Handler) UpsertEquipment(c *gin.Context) {
	var form models.EquipmentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, "invalid equipment form")
		return
	}
	if form.PricePerDay.IsNegative() || (form.PricePerWeek != nil && form.PricePerWeek.IsNegative()) {
		fail(c, http.StatusBadRequest, "prices must not be negative")
		return
	}

	e := form.Equipment(c.Param("id"))
	if err := h.db.UpsertEquipment(&e); err != nil {
		h.logger.Error("UpsertEquipment failed", zap.String("id", e.ID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "equipment could not be saved")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "equipment": e})
}

// DeleteEquipment removes a catalog entry. Carts keep their snapshot rows.
func (h *Handler) DeleteEquipment(c *gin.Context) {
	err := h.db.DeleteEquipment(c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		fail(c, http.StatusNotFound, "equipment not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "equipment could not be deleted")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type availabilityRequest struct {
	From   string                    `json:"from" binding:"required"`
	To     string                    `json:"to" binding:"required"`
	Status models.AvailabilityStatus `json:"status" binding:"required"`
}

// SetAvailability overrides the calendar of a resource over a range.
func (h *Handler) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "from, to and status are required")
		return
	}
	if !req.Status.Valid() {
		fail(c, http.StatusBadRequest, "unknown status")
		return
	}
	r, err := models.ParseDateRange(req.From, req.To)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.availability.MarkRange(c.Param("resource"), r, req.Status); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminListReservations lists every reservation.
func (h *Handler) AdminListReservations(c *gin.Context) {
	list, err := h.reservations.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, "reservations unavailable")
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reservations": list, "generated_at": time.Now().UTC()})
}

// AdminUpdateReservation moves a reservation to a new status. A confirmation
// that would overlap booked or blocked days answers 409.
func (h *Handler) AdminUpdateReservation(c *gin.Context) {
	var form models.ReservationStatusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, "invalid status")
		return
	}
	r, err := h.reservations.UpdateStatus(c.Param("number"), form.Status, form.AdminNotes)
	if errors.Is(err, database.ErrNotFound) {
		fail(c, http.StatusNotFound, "reservation not found")
		return
	}
	if errors.Is(err, database.ErrCalendarConflict) {
		fail(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("AdminUpdateReservation failed", zap.String("reservation", c.Param("number")), zap.Error(err))
		fail(c, http.StatusInternalServerError, "reservation could not be updated")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reservation": r})
}
