package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"studiorent/internal/config"
	"studiorent/internal/database"
	"studiorent/internal/handlers"
	"studiorent/internal/logging"
	"studiorent/internal/services"
	"studiorent/internal/storage"
	"studiorent/internal/telemetry"
	"studiorent/internal/tlsutil"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to a YAML config file")
	debug := flag.Bool("debug", false, "run gin in debug mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if cfg.Database.CatalogSeed != "" {
		n, err := db.SeedCatalog(cfg.Database.CatalogSeed)
		if err != nil {
			return fmt.Errorf("catalog seed: %w", err)
		}
		if n > 0 {
			logger.Info("catalog seeded", zap.Int("equipment", n), zap.String("path", cfg.Database.CatalogSeed))
		}
	}

	kv, err := storage.Open(ctx, storage.Options{
		Driver:        cfg.Storage.Driver,
		FilePath:      cfg.Storage.FilePath,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		RedisPrefix:   cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer kv.Close()

	carts, err := services.NewCartService(db, kv, cfg.Storage.CartCacheSize, cfg.Storage.CartTTL, logger)
	if err != nil {
		return err
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
	reservations := services.NewReservationService(db, carts, availability, mailer, security, logger)

	h := handlers.NewHandler(handlers.Deps{
		DB:           db,
		Carts:        carts,
		Availability: availability,
		Reservations: reservations,
		Security:     security,
		AdminKeyHash: cfg.Admin.KeyHash,
		Logger:       logger,
	})
	if cfg.Admin.KeyHash == "" {
		logger.Warn("admin key hash not set, admin routes are disabled")
	}

	var handler http.Handler = handlers.NewRouter(h, logger)
	if cfg.Telemetry.Enabled {
		shutdownTracing, err := telemetry.Setup(cfg.Telemetry.ServiceName, os.Stdout)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = shutdownTracing(sctx)
		}()
		handler = telemetry.Wrap(handler, "studiorent")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	if cfg.Server.TLS {
		cert, loaded, err := tlsutil.LoadOrGenerate(cfg.Server.CertFile, cfg.Server.KeyFile, "StudioRent")
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		if !loaded {
			logger.Warn("certificate files not found, using an in-memory self-signed certificate")
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		go func() { errCh <- srv.ListenAndServeTLS("", "") }()
		logger.Info("HTTPS server listening", zap.String("addr", srv.Addr))
	} else {
		go func() { errCh <- srv.ListenAndServe() }()
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	carts.Shutdown()
	reservations.Wait()
	return nil
}
