package main

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"delivery-dispatch-service/internal/adapters/repositories"
	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/platform/db"
)

// dbtool initializes the schema and seeds drivers and the delivery zone.
// Run it once against a fresh database before starting the server.
func main() {
	_ = godotenv.Load()

	log := logger.New(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "text"))

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	database, err := db.Open(databaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer database.Close()

	ctx := context.Background()

	log.Info("initializing database schema")
	if err := repositories.InitSchema(ctx, database); err != nil {
		log.WithError(err).Fatal("schema initialization failed")
	}
	log.Info("schema ready")

	seedPath := getEnv("SEED_PATH", "data/seeds/fleet.json")
	if _, err := os.Stat(seedPath); err != nil {
		log.WithField("path", seedPath).Info("no seed file, skipping seeding")
		return
	}

	log.WithField("path", seedPath).Info("seeding database")
	if err := repositories.SeedFromJSON(ctx, database, seedPath); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
	log.Info("seeding complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
