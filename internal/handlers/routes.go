package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studiorent/internal/logging"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(logging.GinLogger(logger))
	r.Use(logging.GinRecovery(logger))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	api := r.Group("/api")
	api.GET("/health", h.Health)

	api.GET("/equipment", h.ListEquipment)
	api.GET("/equipment/:id", h.GetEquipment)
	api.GET("/equipment/:id/quote", h.QuoteEquipmentRange)

	cart := api.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.GET("/count", h.GetCartCount)
		cart.POST("/items", h.AddToCart)
		cart.GET("/items/:id", h.GetCartItem)
		cart.PUT("/items/:id", h.UpdateCartItem)
		cart.DELETE("/items/:id", h.RemoveFromCart)
	}

	api.GET("/quote", h.GetQuote)
	api.POST("/quote/tiered", h.TieredQuote)

	api.GET("/availability/:resource", h.GetAvailability)

	api.POST("/reservations", h.SubmitReservation)
	api.GET("/reservations", h.ListSessionReservations)
	api.GET("/reservations/:number", h.GetReservation)

	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.PUT("/equipment/:id", h.UpsertEquipment)
		admin.DELETE("/equipment/:id", h.DeleteEquipment)
		admin.PUT("/availability/:resource", h.SetAvailability)
		admin.GET("/reservations", h.AdminListReservations)
		admin.PUT("/reservations/:number/status", h.AdminUpdateReservation)
	}

	return r
}
