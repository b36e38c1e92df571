package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"studiorent/internal/database"
	"studiorent/internal/models"
	"studiorent/internal/services"
)

const (
	sessionCookie    = "rental_session"
	sessionMaxAge    = 3600 * 24 * 30
	defaultQuoteDays = 1
)

// Handler serves the rental JSON API.
type Handler struct {
	db           database.DBInterface
	carts        *services.CartService
	availability *services.AvailabilityService
	reservations *services.ReservationService
	security     *services.SecurityLogger
	adminKeyHash []byte
	logger       *zap.Logger
}

// Deps bundles the collaborators of a Handler.
type Deps struct {
	DB           database.DBInterface
	Carts        *services.CartService
	Availability *services.AvailabilityService
	Reservations *services.ReservationService
	Security     *services.SecurityLogger
	AdminKeyHash string
	Logger       *zap.Logger
}

// NewHandler builds the HTTP handlers from their dependencies.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	security := d.Security
	if security == nil {
		security = services.NewSecurityLogger(logger)
	}
	return &Handler{
		db:           d.DB,
		carts:        d.Carts,
		availability: d.Availability,
		reservations: d.Reservations,
		security:     security,
		adminKeyHash: []byte(d.AdminKeyHash),
		logger:       logger,
	}
}

// --- session ---

// currentSession returns the caller's session id, or "" when the cookie is
// absent or malformed.
func currentSession(c *gin.Context) string {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		return ""
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// ensureSession returns the session id, issuing a new cookie on first touch.
func (h *Handler) ensureSession(c *gin.Context) string {
	if id := currentSession(c); id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetCookie(sessionCookie, id, sessionMaxAge, "/", "", false, true)
	h.logger.Debug("session created", zap.String("session", id))
	return id
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func outcomeStatus(o services.Outcome) int {
	switch o {
	case services.Accepted:
		return http.StatusOK
	case services.NotInCart:
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

func outcomeMessage(o services.Outcome) string {
	switch o {
	case services.Accepted:
		return "cart updated"
	case services.RejectedAtCapacity:
		return "maximum available quantity reached"
	case services.RejectedUnavailable:
		return "equipment is not available for rent"
	case services.NotInCart:
		return "item is not in the cart"
	}
	return string(o)
}

func parseDays(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("days", strconv.Itoa(defaultQuoteDays))
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		fail(c, http.StatusBadRequest, "days must be a positive integer")
		return 0, false
	}
	return days, true
}

func parseRange(c *gin.Context) (models.DateRange, bool) {
	r, err := models.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		fail(c, http.StatusBadRequest, "from and to must be YYYY-MM-DD with from <= to")
		return models.DateRange{}, false
	}
	return r, true
}

// --- health ---

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_carts": h.carts.Len()})
}

// --- catalog ---

type equipmentView struct {
	models.Equipment
	InCart     int  `json:"in_cart"`
	CanAddMore bool `json:"can_add_more"`
}

func (h *Handler) view(c *gin.Context, sessionID string, e models.Equipment) equipmentView {
	v := equipmentView{Equipment: e, CanAddMore: services.IsRentable(e)}
	if sessionID != "" {
		cart := h.carts.GetCart(c.Request.Context(), sessionID)
		v.InCart = cart.Quantity(e.ID)
		v.CanAddMore = cart.CanAddMore(e)
	}
	return v
}

// ListEquipment returns the catalog, annotated with the caller's cart state.
func (h *Handler) ListEquipment(c *gin.Context) {
	all, err := h.db.GetAllEquipment()
	if err != nil {
		h.logger.Error("ListEquipment - catalog read failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	category := strings.ToLower(c.Query("category"))
	sessionID := currentSession(c)

	out := make([]equipmentView, 0, len(all))
	for _, e := range all {
		if e.Status == models.EquipmentRetired {
			continue
		}
		if category != "" && strings.ToLower(e.Category) != category {
			continue
		}
		out = append(out, h.view(c, sessionID, e))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "equipment": out})
}

// GetEquipment returns one catalog entry.
func (h *Handler) GetEquipment(c *gin.Context) {
	e, err := h.db.GetEquipmentByID(c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		fail(c, http.StatusNotFound, "equipment not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "equipment": h.view(c, currentSession(c), *e)})
}

// QuoteEquipmentRange prices one item over a date range with weekly tiering.
func (h *Handler) QuoteEquipmentRange(c *gin.Context) {
	r, ok := parseRange(c)
	if !ok {
		return
	}
	quantity := 1
	if raw := c.Query("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 {
			fail(c, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		quantity = q
	}
	q, err := h.availability.QuoteRange(c.Param("id"), r, quantity)
	switch {
	case errors.Is(err, services.ErrEquipmentNotFound):
		fail(c, http.StatusNotFound, "equipment not found")
		return
	case errors.Is(err, services.ErrRangeTooLong):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("QuoteEquipmentRange failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "quote unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quote": q})
}

// --- cart ---

// GetCart returns the session's cart rows with a quote for the requested days.
func (h *Handler) GetCart(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	sessionID := h.ensureSession(c)
	cart := h.carts.GetCart(c.Request.Context(), sessionID)
	items := cart.Items()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"items":   items,
		"quote":   services.BuildQuote(items, days),
	})
}

type addItemRequest struct {
	ID string `json:"id" binding:"required"`
}

// AddToCart adds one unit of the posted equipment id. Rejections answer 409
// with the outcome in the body.
func (h *Handler) AddToCart(c *gin.Context) {
	sessionID := h.ensureSession(c)

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "id is required")
		return
	}

	outcome, err := h.carts.AddToCart(c.Request.Context(), sessionID, req.ID)
	if errors.Is(err, services.ErrEquipmentNotFound) {
		fail(c, http.StatusNotFound, "equipment not found")
		return
	}
	if err != nil {
		h.logger.Error("AddToCart failed", zap.String("session", sessionID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "could not add to cart")
		return
	}
	h.respondOutcome(c, sessionID, req.ID, outcome)
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// UpdateCartItem sets a row's quantity; zero or less removes it.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	sessionID := h.ensureSession(c)

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "quantity is required")
		return
	}
	id := c.Param("id")
	outcome := h.carts.UpdateCartItem(c.Request.Context(), sessionID, id, *req.Quantity)
	h.respondOutcome(c, sessionID, id, outcome)
}

func (h *Handler) respondOutcome(c *gin.Context, sessionID, id string, outcome services.Outcome) {
	cart := h.carts.GetCart(c.Request.Context(), sessionID)
	c.JSON(outcomeStatus(outcome), gin.H{
		"success":     outcome == services.Accepted,
		"outcome":     outcome,
		"message":     outcomeMessage(outcome),
		"quantity":    cart.Quantity(id),
		"total_items": cart.TotalItems(),
	})
}

// GetCartItem reports the quantity of one item and whether another unit fits.
func (h *Handler) GetCartItem(c *gin.Context) {
	id := c.Param("id")
	sessionID := currentSession(c)
	quantity := 0
	if sessionID != "" {
		quantity = h.carts.GetCart(c.Request.Context(), sessionID).Quantity(id)
	}

	canAddMore := false
	if e, err := h.db.GetEquipmentByID(id); err == nil {
		canAddMore = services.IsRentable(*e) && services.CanAddMore(e.StockQuantity, quantity)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "quantity": quantity, "can_add_more": canAddMore})
}

// RemoveFromCart drops a row.
func (h *Handler) RemoveFromCart(c *gin.Context) {
	sessionID := currentSession(c)
	removed := false
	if sessionID != "" {
		removed = h.carts.RemoveFromCart(c.Request.Context(), sessionID, c.Param("id"))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

// ClearCart empties the session's cart.
func (h *Handler) ClearCart(c *gin.Context) {
	if sessionID := currentSession(c); sessionID != "" {
		h.carts.ClearCart(c.Request.Context(), sessionID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetCartCount returns the total number of units in the cart.
func (h *Handler) GetCartCount(c *gin.Context) {
	count := 0
	if sessionID := currentSession(c); sessionID != "" {
		count = h.carts.GetCartCount(c.Request.Context(), sessionID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

// --- pricing ---

// GetQuote prices the cart for the requested number of days.
func (h *Handler) GetQuote(c *gin.Context) {
	days, ok := parseDays(c)
	if !ok {
		return
	}
	var quote services.Quote
	if sessionID := currentSession(c); sessionID != "" {
		quote = h.carts.Quote(c.Request.Context(), sessionID, days)
	} else {
		quote = services.BuildQuote(nil, days)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quote": quote})
}

type tieredRequest struct {
	PricePerDay  decimal.Decimal  `json:"price_per_day"`
	PricePerWeek *decimal.Decimal `json:"price_per_week"`
	Days         int              `json:"days" binding:"required,gte=1"`
	Quantity     int              `json:"quantity" binding:"omitempty,gte=1"`
}

// TieredQuote exposes the weekly tier calculation for the booking calendar.
func (h *Handler) TieredQuote(c *gin.Context) {
	var req tieredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "days must be a positive integer")
		return
	}
	if req.PricePerDay.IsNegative() || (req.PricePerWeek != nil && req.PricePerWeek.IsNegative()) {
		fail(c, http.StatusBadRequest, "prices must not be negative")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"days":      req.Days,
		"quantity":  req.Quantity,
		"unit":      services.TieredPrice(req.PricePerDay, req.PricePerWeek, req.Days),
		"total":     services.TieredPriceForQuantity(req.PricePerDay, req.PricePerWeek, req.Days, req.Quantity),
		"has_tiers": req.PricePerWeek != nil && req.Days >= 7,
	})
}

// --- availability ---

// GetAvailability returns the per-day calendar of a resource.
func (h *Handler) GetAvailability(c *gin.Context) {
	r, ok := parseRange(c)
	if !ok {
		return
	}
	resource := c.Param("resource")
	days, err := h.availability.Calendar(resource, r)
	if errors.Is(err, services.ErrRangeTooLong) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("GetAvailability failed", zap.String("resource", resource), zap.Error(err))
		fail(c, http.StatusInternalServerError, "availability unavailable")
		return
	}
	available := true
	for _, d := range days {
		if d.Status != models.StatusAvailable {
			available = false
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"resource":  resource,
		"days":      days,
		"available": available,
	})
}

// --- reservations ---

// SubmitReservation turns the session's cart into a pending reservation.
func (h *Handler) SubmitReservation(c *gin.Context) {
	sessionID := h.ensureSession(c)

	var form models.ReservationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Debug("SubmitReservation - bind error", zap.Error(err))
		fail(c, http.StatusBadRequest, "invalid reservation form")
		return
	}

	r, err := h.reservations.Submit(c.Request.Context(), sessionID, form, c.ClientIP())
	var unavailable *services.UnavailableError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"success":            true,
			"reservation_number": r.ReservationNumber,
			"reservation":        r,
		})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": services.ErrUnavailable.Error(), "unavailable": unavailable.IDs})
	case errors.Is(err, services.ErrEmptyCart):
		fail(c, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, services.ErrSpamDetected):
		fail(c, http.StatusBadRequest, "message rejected")
	case errors.Is(err, services.ErrMissingDuration),
		errors.Is(err, models.ErrInvalidRange),
		errors.Is(err, services.ErrRangeTooLong):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("SubmitReservation failed", zap.String("session", sessionID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "reservation could not be saved")
	}
}

// GetReservation looks a reservation up by number; the email must match.
func (h *Handler) GetReservation(c *gin.Context) {
	r, err := h.reservations.Get(c.Param("number"))
	if err != nil || !strings.EqualFold(r.Email, c.Query("email")) {
		fail(c, http.StatusNotFound, "reservation not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reservation": r})
}

// ListSessionReservations lists the reservations of the calling session.
func (h *Handler) ListSessionReservations(c *gin.Context) {
	sessionID := currentSession(c)
	if sessionID == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "reservations": []models.Reservation{}})
		return
	}
	list, err := h.reservations.ListForSession(sessionID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "reservations unavailable")
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reservations": list})
}
