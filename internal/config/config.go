package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"delivery-dispatch-service/internal/domain"
)

// Config is the full recognized option surface, loaded from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Logger   LoggerConfig
	Maps     MapsConfig
	Dispatch DispatchConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Kafka carries the optional driver-location feed. Empty broker list
// disables ingestion; the service runs fine on HTTP location updates alone.
type KafkaConfig struct {
	Brokers        []string
	GroupID        string
	LocationsTopic string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type MapsConfig struct {
	// Empty APIKey means the external routing provider is unconfigured and
	// every distance comes from the straight-line estimator.
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Dispatch knobs. Defaults mirror the production reassignment rules.
type DispatchConfig struct {
	// MaxDelayMinutes is configured for parity with the reassignment rule
	// set but not enforced as an independent check; the time-window and
	// return-distance caps bound the detour instead.
	MaxDelayMinutes            int
	MaxReturnDistanceKm        float64
	MaxTimeWindow              time.Duration
	MinEfficiencyGain          float64
	MaxAdditionalOrders        int
	RouteCacheTTL              time.Duration
	StraightLinePrefilterKm    float64
	BatchDistanceThreshold     int
	DefaultMaxConcurrentOrders int
	AverageDrivingSpeedKmh     float64
	SupplierLocation           domain.Coordinate
	PerStopDeliveryTime        time.Duration
	ZoneCacheTTL               time.Duration
}

// Load reads configuration from the environment with production defaults.
func Load() (*Config, error) {
	supplier, err := parseSupplierLocation(getEnv("SUPPLIER_LOCATION", "120.9025,14.4444"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(os.Getenv("KAFKA_BROKERS")),
			GroupID:        getEnv("KAFKA_GROUP_ID", "dispatch-core"),
			LocationsTopic: getEnv("KAFKA_LOCATIONS_TOPIC", "driver-locations"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Maps: MapsConfig{
			APIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
			BaseURL: getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com"),
			Timeout: getEnvDuration("GOOGLE_MAPS_TIMEOUT", 10*time.Second),
		},
		Dispatch: DispatchConfig{
			MaxDelayMinutes:            getEnvInt("MAX_DELAY_MINUTES", 10),
			MaxReturnDistanceKm:        getEnvFloat("MAX_RETURN_DISTANCE_KM", 3),
			MaxTimeWindow:              time.Duration(getEnvInt("MAX_TIME_WINDOW_MINUTES", 8)) * time.Minute,
			MinEfficiencyGain:          getEnvFloat("MIN_EFFICIENCY_GAIN", 0.25),
			MaxAdditionalOrders:        getEnvInt("MAX_ADDITIONAL_ORDERS_PER_REASSIGNMENT", 1),
			RouteCacheTTL:              getEnvDuration("ROUTE_CACHE_TTL", 24*time.Hour),
			StraightLinePrefilterKm:    getEnvFloat("STRAIGHT_LINE_PREFILTER_THRESHOLD_KM", 10),
			BatchDistanceThreshold:     getEnvInt("BATCH_DISTANCE_THRESHOLD", 2),
			DefaultMaxConcurrentOrders: getEnvInt("DEFAULT_MAX_CONCURRENT_ORDERS", 3),
			AverageDrivingSpeedKmh:     getEnvFloat("AVERAGE_DRIVING_SPEED_KMH", 30),
			SupplierLocation:           supplier,
			PerStopDeliveryTime:        getEnvDuration("PER_STOP_DELIVERY_TIME", 20*time.Minute),
			ZoneCacheTTL:               getEnvDuration("ZONE_CACHE_TTL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// Validate rejects option values the dispatch algorithm cannot work with.
func (c *Config) Validate() error {
	d := c.Dispatch
	if d.MinEfficiencyGain <= 0 || d.MinEfficiencyGain >= 1 {
		return fmt.Errorf("MIN_EFFICIENCY_GAIN must be in (0,1), got %v", d.MinEfficiencyGain)
	}
	if d.MaxReturnDistanceKm <= 0 {
		return fmt.Errorf("MAX_RETURN_DISTANCE_KM must be positive, got %v", d.MaxReturnDistanceKm)
	}
	if d.StraightLinePrefilterKm <= 0 {
		return fmt.Errorf("STRAIGHT_LINE_PREFILTER_THRESHOLD_KM must be positive, got %v", d.StraightLinePrefilterKm)
	}
	if d.AverageDrivingSpeedKmh <= 0 {
		return fmt.Errorf("AVERAGE_DRIVING_SPEED_KMH must be positive, got %v", d.AverageDrivingSpeedKmh)
	}
	if d.DefaultMaxConcurrentOrders < 1 {
		return fmt.Errorf("DEFAULT_MAX_CONCURRENT_ORDERS must be at least 1, got %d", d.DefaultMaxConcurrentOrders)
	}
	if !d.SupplierLocation.Valid() {
		return fmt.Errorf("SUPPLIER_LOCATION out of range: %v", d.SupplierLocation)
	}
	return nil
}

func parseSupplierLocation(s string) (domain.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("SUPPLIER_LOCATION must be \"lon,lat\", got %q", s)
	}
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLon != nil || errLat != nil {
		return domain.Coordinate{}, fmt.Errorf("SUPPLIER_LOCATION must be \"lon,lat\", got %q", s)
	}
	return domain.Coordinate{Lon: lon, Lat: lat}, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
