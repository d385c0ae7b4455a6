package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"delivery-dispatch-service/internal/adapters/cache"
	"delivery-dispatch-service/internal/adapters/distance"
	"delivery-dispatch-service/internal/adapters/repositories"
	"delivery-dispatch-service/internal/adapters/zone"
	"delivery-dispatch-service/internal/api"
	"delivery-dispatch-service/internal/config"
	"delivery-dispatch-service/internal/ingest"
	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/platform/db"
	"delivery-dispatch-service/internal/services"
)

// main is the application composition root. It wires concrete adapters
// (Postgres, Redis, Google routing, Kafka) behind ports and starts the
// HTTP server.
func main() {
	// No .env file is fine; variables then come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("configuration invalid")
	}

	log := logger.New(cfg.Logger.Level, cfg.Logger.Format)

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	driverStore := repositories.NewPgDriverStore(database)
	orderStore := repositories.NewPgOrderStore(database)
	zoneProvider := zone.NewPgZoneProvider(database, cfg.Dispatch.ZoneCacheTTL)
	routeCache := cache.NewRedisRouteCache(redisClient, cfg.Dispatch.RouteCacheTTL)
	geoIndex := cache.NewRedisGeoIndex(redisClient)

	var external *distance.GoogleProvider
	if cfg.Maps.APIKey != "" {
		external, err = distance.NewGoogleProvider(cfg.Maps.APIKey, cfg.Maps.BaseURL, cfg.Maps.Timeout)
		if err != nil {
			log.WithError(err).Fatal("routing provider setup failed")
		}
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set, all distances use the straight-line estimate")
	}

	provider := distance.NewProvider(distance.Options{
		External:    external,
		Cache:       routeCache,
		AvgSpeedKmh: cfg.Dispatch.AverageDrivingSpeedKmh,
		PrefilterKm: cfg.Dispatch.StraightLinePrefilterKm,
		Log:         log,
	})

	registry := services.NewRegistry(driverStore, orderStore)
	optimizer := services.NewOptimizer(provider)
	dispatcher := services.NewDispatcher(
		registry,
		optimizer,
		provider,
		driverStore,
		orderStore,
		services.DispatchOptions{
			Supplier:            cfg.Dispatch.SupplierLocation,
			MaxReturnDistanceKm: cfg.Dispatch.MaxReturnDistanceKm,
			MaxTimeWindow:       cfg.Dispatch.MaxTimeWindow,
			MinEfficiencyGain:   cfg.Dispatch.MinEfficiencyGain,
			BatchThreshold:      cfg.Dispatch.BatchDistanceThreshold,
			PerStopTime:         cfg.Dispatch.PerStopDeliveryTime,
		},
		log,
	)

	// The Kafka location feed is optional; without brokers the service
	// relies on HTTP location updates alone.
	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := ingest.NewLocationConsumer(cfg.Kafka, driverStore, geoIndex, log)
		if err != nil {
			log.WithError(err).Fatal("location feed setup failed")
		}
		consumer.Start()
		defer func() {
			if err := consumer.Stop(); err != nil {
				log.WithError(err).Warn("location feed shutdown failed")
			}
		}()
	}

	router := api.NewRouter(api.Deps{
		Dispatcher: dispatcher,
		Orders:     orderStore,
		Drivers:    driverStore,
		Zone:       zoneProvider,
		RouteCache: routeCache,
		GeoIndex:   geoIndex,
		Supplier:   cfg.Dispatch.SupplierLocation,
		Log:        log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).
			WithField("supplier", cfg.Dispatch.SupplierLocation.CoordsToList()).
			WithField("routing_provider", external != nil).
			WithField("kafka_feed", len(cfg.Kafka.Brokers) > 0).
			Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
