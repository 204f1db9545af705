package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/auth"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/gate"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/grant"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/middleware"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/notify"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/tenant"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/database"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/monitoring"
)

func main() {
	// Load .env in development; ignored when absent
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting Access Service")

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.CreateSchema(context.Background()); err != nil {
		log.WithError(err).Error("Failed to ensure database schema")
		os.Exit(1)
	}

	// Repositories
	orgRepo := tenant.NewRepository(db, log)
	userRepo := tenant.NewUserRepository(db, log)
	grantRepo := grant.NewRepository(db, log)

	// Notification pipeline. Delivery runs on a worker goroutine; the grant
	// email timestamp is stamped only after a message actually goes out.
	var mailer interfaces.Mailer
	if cfg.Notifications.Enabled && cfg.Notifications.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(&cfg.Notifications)
	} else {
		mailer = notify.NewLogMailer(log)
	}
	dispatcher := notify.NewDispatcher(mailer, log, cfg.Notifications.QueueSize, func(ctx context.Context, grantID string, at time.Time) {
		if err := grantRepo.RecordEmailSent(ctx, grantID, at); err != nil {
			log.WithError(err).WithFields(map[string]interface{}{"grant_id": grantID}).
				Warn("Failed to record notification delivery")
		}
	})
	notifier := notify.NewGrantNotifier(&cfg.Tenant, dispatcher, log)

	// Core services
	grantService := grant.NewService(cfg, log, grantRepo, userRepo, notifier)
	resolver := tenant.NewResolver(&cfg.Tenant, orgRepo, log)
	validator := auth.NewTokenValidator(&cfg.JWT)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// HTTP surface
	grantHandlers := grant.NewHandlers(grantService, log)
	gateHandlers := gate.NewHandlers(grantService, log)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.HTTPMetrics())

	router.GET(cfg.Monitoring.HealthPath, monitoring.HealthHandler("access-service", db))
	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(monitoring.MetricsHandler()))
	}

	requireAuth := auth.RequireAuth(validator, log)
	tenantMW := tenant.Middleware(resolver, &cfg.Tenant, log)
	tenantOptional := tenant.OptionalMiddleware(resolver, &cfg.Tenant)

	grantHandlers.RegisterRoutes(router, grant.Middlewares{
		RequireAuth:  requireAuth,
		Tenant:       tenantMW,
		TenantOption: tenantOptional,
		RateLimit:    rateLimiter.Limit(),
	})
	gateHandlers.RegisterRoutes(router, requireAuth, tenantMW)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithFields(map[string]interface{}{"address": server.Addr}).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start HTTP server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Access Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Drain pending notifications before exiting
	dispatcher.Close()

	log.Info("Access Service stopped")
}
