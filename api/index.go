package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studiorent/internal/config"
	"studiorent/internal/database"
	"studiorent/internal/handlers"
	"studiorent/internal/logging"
	"studiorent/internal/services"
	"studiorent/internal/storage"
)

var (
	once    sync.Once
	router  http.Handler
	initErr error
)

// setup builds the API for a serverless instance: the catalog lives in the
// instance's temp dir and carts stay in memory for its lifetime.
func setup() (http.Handler, error) {
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load(os.Getenv("STUDIORENT_CONFIG"))
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(filepath.Join(os.TempDir(), "studiorent-data.json"), logger)
	if err != nil {
		return nil, err
	}
	if cfg.Database.CatalogSeed != "" {
		if _, err := db.SeedCatalog(cfg.Database.CatalogSeed); err != nil {
			logger.Warn("catalog seed failed", zap.Error(err))
		}
	}

	carts, err := services.NewCartService(db, storage.NewMemoryKV(), cfg.Storage.CartCacheSize, 24*time.Hour, logger)
	if err != nil {
		return nil, err
	}
	security := services.NewSecurityLogger(logger)
	availability := services.NewAvailabilityService(db, logger)
	mailer := services.NewEmailService(services.EmailConfig{
		Host:        cfg.Email.Host,
		Port:        cfg.Email.Port,
		User:        cfg.Email.User,
		Password:    cfg.Email.Password,
		From:        cfg.Email.From,
		StudioEmail: cfg.Email.StudioEmail,
	}, logger)

	h := handlers.NewHandler(handlers.Deps{
		DB:           db,
		Carts:        carts,
		Availability: availability,
		Reservations: services.NewReservationService(db, carts, availability, mailer, security, logger),
		Security:     security,
		AdminKeyHash: cfg.Admin.KeyHash,
		Logger:       logger,
	})
	return handlers.NewRouter(h, logger), nil
}

// Handler is the serverless entrypoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		router, initErr = setup()
	})
	if initErr != nil {
		http.Error(w, "service unavailable: "+initErr.Error(), http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}
