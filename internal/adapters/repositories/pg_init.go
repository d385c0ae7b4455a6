package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/domain"
)

// Initialize the Postgres schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'offline',
		current_orders INTEGER NOT NULL DEFAULT 0,
		max_concurrent_orders INTEGER NOT NULL DEFAULT 3,
		location_lon DOUBLE PRECISION,
		location_lat DOUBLE PRECISION,
		last_location_update TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (current_orders >= 0),
		CHECK (current_orders <= max_concurrent_orders)
	);
	`

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'pending',
		driver_id UUID REFERENCES drivers(id),
		delivery_lon DOUBLE PRECISION NOT NULL,
		delivery_lat DOUBLE PRECISION NOT NULL,
		delivery_fee INTEGER NOT NULL DEFAULT 0,
		delivery_sequence INTEGER NOT NULL DEFAULT 0,
		estimated_delivery_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS driver_routes (
		driver_id UUID PRIMARY KEY REFERENCES drivers(id),
		route_sequence JSONB NOT NULL DEFAULT '[]',
		route_data JSONB NOT NULL DEFAULT '{}',
		total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		supplier_lon DOUBLE PRECISION NOT NULL,
		supplier_lat DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	createZoneQuery := `
	CREATE TABLE IF NOT EXISTS delivery_zone (
		position INTEGER PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`

	createOrderIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_orders_driver_status
	ON orders(driver_id, status);
	`

	statements := []string{
		createDriversQuery,
		createOrdersQuery,
		createRoutesQuery,
		createZoneQuery,
		createOrderIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type DriverSeed struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	Status              string `json:"status"`
	MaxConcurrentOrders int    `json:"max_concurrent_orders"`
}

type SeedFile struct {
	Drivers []DriverSeed `json:"drivers"`
	Zone    [][2]float64 `json:"zone"` // [lon, lat] vertex ring
}

// Populate the database with driver and delivery-zone data from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}

	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	for i, d := range data.Drivers {
		if _, err := uuid.Parse(d.ID); err != nil {
			return fmt.Errorf("seed: invalid driver id at index %d: %w", i+1, err)
		}
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("seed: driver name at index %d cannot be empty", i+1)
		}
	}
	for i, v := range data.Zone {
		c := domain.Coordinate{Lon: v[0], Lat: v[1]}
		if !c.Valid() {
			return fmt.Errorf("seed: zone vertex #%d out of range: (%f, %f)", i+1, v[0], v[1])
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	driverQuery := `
	INSERT INTO drivers (id, name, phone, email, status, max_concurrent_orders)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		phone = EXCLUDED.phone,
		email = EXCLUDED.email,
		status = EXCLUDED.status,
		max_concurrent_orders = EXCLUDED.max_concurrent_orders,
		updated_at = NOW();
	`
	for i, d := range data.Drivers {
		status := d.Status
		if status == "" {
			status = string(domain.DriverOffline)
		}
		maxOrders := d.MaxConcurrentOrders
		if maxOrders <= 0 {
			maxOrders = 3
		}
		if _, err := tx.ExecContext(ctx, driverQuery, d.ID, d.Name, d.Phone, d.Email, status, maxOrders); err != nil {
			return fmt.Errorf("seed: insert driver #%d: %w", i+1, err)
		}
	}

	if len(data.Zone) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM delivery_zone;`); err != nil {
			return fmt.Errorf("seed: clear delivery_zone: %w", err)
		}
		zoneQuery := `INSERT INTO delivery_zone (position, lon, lat) VALUES ($1, $2, $3);`
		for i, v := range data.Zone {
			if _, err := tx.ExecContext(ctx, zoneQuery, i, v[0], v[1]); err != nil {
				return fmt.Errorf("seed: insert zone vertex #%d: %w", i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
