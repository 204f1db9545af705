package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/grant"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/tenant"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/database"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
)

// The sweeper is the eager half of grant expiry. It is a convergence pass
// for listings and reporting only; the lazy per-access check is already
// authoritative, so a missed run never extends anyone's access.
func main() {
	interval := flag.Duration("interval", 0, "run continuously at this interval instead of once")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting grant sweeper")

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	grantRepo := grant.NewRepository(db, log)
	userRepo := tenant.NewUserRepository(db, log)
	service := grant.NewService(cfg, log, grantRepo, userRepo, nil)

	if err := sweepOnce(service, log); err != nil {
		os.Exit(1)
	}

	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := sweepOnce(service, log); err != nil {
			log.WithError(err).Warn("Sweep failed, will retry next interval")
		}
	}
}

func sweepOnce(service *grant.Service, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	swept, err := service.Sweep(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to sweep expired grants")
		return err
	}

	log.WithFields(map[string]interface{}{"swept": swept}).Info("Expired grants swept")
	return nil
}
