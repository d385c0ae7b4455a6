package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the DriverStore port. Driver positions
// live in plain lon/lat columns; routes are stored one row per driver with
// the stop sequence and map geometry as JSONB.
type PgDriverStore struct{ DB *sql.DB }

func NewPgDriverStore(db *sql.DB) *PgDriverStore {
	return &PgDriverStore{DB: db}
}

const driverColumns = `
	id,
	name,
	phone,
	email,
	status,
	current_orders,
	max_concurrent_orders,
	location_lon,
	location_lat,
	last_location_update,
	created_at,
	updated_at
`

func scanDriver(row interface{ Scan(...any) error }) (*domain.Driver, error) {
	var d domain.Driver
	var lon, lat sql.NullFloat64
	var lastUpdate sql.NullTime

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Phone,
		&d.Email,
		&d.Status,
		&d.CurrentOrders,
		&d.MaxConcurrentOrders,
		&lon,
		&lat,
		&lastUpdate,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lon.Valid && lat.Valid {
		d.CurrentLocation = &domain.Coordinate{Lon: lon.Float64, Lat: lat.Float64}
	}
	if lastUpdate.Valid {
		t := lastUpdate.Time
		d.LastLocationUpdate = &t
	}
	return &d, nil
}

func (s *PgDriverStore) GetDriver(ctx context.Context, id uuid.UUID) (*domain.Driver, error) {
	if s.DB == nil {
		return nil, errors.New("driver store: DB is nil")
	}

	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1;`

	d, err := scanDriver(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get driver: %s: not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get driver: scan row: %w", err)
	}
	return d, nil
}

func (s *PgDriverStore) listDrivers(ctx context.Context, query string, tag string) ([]*domain.Driver, error) {
	if s.DB == nil {
		return nil, errors.New("driver store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: query drivers table: %w", tag, err)
	}
	defer rows.Close()

	drivers := make([]*domain.Driver, 0, 16)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", tag, err)
		}
		drivers = append(drivers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", tag, err)
	}
	return drivers, nil
}

// AvailableDrivers returns every driver eligible for a fresh assignment,
// least-loaded first so assignment spreads work evenly.
func (s *PgDriverStore) AvailableDrivers(ctx context.Context) ([]*domain.Driver, error) {
	query := `
	SELECT ` + driverColumns + `
	FROM drivers
	WHERE status IN ('available', 'busy')
		AND current_orders < max_concurrent_orders
	ORDER BY current_orders ASC, id ASC;
	`
	return s.listDrivers(ctx, query, "available drivers")
}

// BusyDriversWithCapacity returns busy drivers that can still absorb an
// extra stop, for the reassignment check.
func (s *PgDriverStore) BusyDriversWithCapacity(ctx context.Context) ([]*domain.Driver, error) {
	query := `
	SELECT ` + driverColumns + `
	FROM drivers
	WHERE status = 'busy'
		AND current_orders < max_concurrent_orders
	ORDER BY current_orders ASC, id ASC;
	`
	return s.listDrivers(ctx, query, "busy drivers")
}

// TryIncrementLoad is the commit point of an assignment. The WHERE clause
// re-checks capacity inside the UPDATE so two dispatchers racing on the
// same driver cannot push it past max_concurrent_orders.
func (s *PgDriverStore) TryIncrementLoad(ctx context.Context, driverID uuid.UUID) (bool, error) {
	if s.DB == nil {
		return false, errors.New("driver store: DB is nil")
	}

	query := `
	UPDATE drivers
	SET current_orders = current_orders + 1,
		status = 'busy',
		updated_at = NOW()
	WHERE id = $1
		AND status IN ('available', 'busy')
		AND current_orders < max_concurrent_orders;
	`

	res, err := s.DB.ExecContext(ctx, query, driverID)
	if err != nil {
		return false, fmt.Errorf("increment driver load: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment driver load: rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PgDriverStore) DecrementLoad(ctx context.Context, driverID uuid.UUID) error {
	if s.DB == nil {
		return errors.New("driver store: DB is nil")
	}

	// CASE reads the pre-update order count: a driver dropping to zero
	// in-flight orders goes back to available.
	query := `
	UPDATE drivers
	SET current_orders = GREATEST(current_orders - 1, 0),
		status = CASE
			WHEN current_orders <= 1 AND status = 'busy' THEN 'available'
			ELSE status
		END,
		updated_at = NOW()
	WHERE id = $1;
	`

	res, err := s.DB.ExecContext(ctx, query, driverID)
	if err != nil {
		return fmt.Errorf("decrement driver load: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement driver load: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("decrement driver load: %s: not found", driverID)
	}
	return nil
}

func (s *PgDriverStore) UpdateLocation(ctx context.Context, driverID uuid.UUID, location domain.Coordinate, at time.Time) error {
	if s.DB == nil {
		return errors.New("driver store: DB is nil")
	}

	query := `
	UPDATE drivers
	SET location_lon = $2,
		location_lat = $3,
		last_location_update = $4,
		updated_at = NOW()
	WHERE id = $1;
	`

	res, err := s.DB.ExecContext(ctx, query, driverID, location.Lon, location.Lat, at)
	if err != nil {
		return fmt.Errorf("update driver location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update driver location: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update driver location: %s: not found", driverID)
	}
	return nil
}

func (s *PgDriverStore) GetDriverRoute(ctx context.Context, driverID uuid.UUID) (*domain.DriverRoute, error) {
	if s.DB == nil {
		return nil, errors.New("driver store: DB is nil")
	}

	query := `
	SELECT
		driver_id,
		route_sequence,
		route_data,
		total_distance_km,
		duration_minutes,
		supplier_lon,
		supplier_lat,
		created_at,
		updated_at
	FROM driver_routes
	WHERE driver_id = $1;
	`

	var r domain.DriverRoute
	var seqRaw, dataRaw []byte
	err := s.DB.QueryRowContext(ctx, query, driverID).Scan(
		&r.DriverID,
		&seqRaw,
		&dataRaw,
		&r.TotalDistanceKm,
		&r.DurationMinutes,
		&r.SupplierLocation.Lon,
		&r.SupplierLocation.Lat,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get driver route: scan row: %w", err)
	}

	if err := json.Unmarshal(seqRaw, &r.RouteSequence); err != nil {
		return nil, fmt.Errorf("get driver route: parse route_sequence: %w", err)
	}
	if err := json.Unmarshal(dataRaw, &r.RouteData); err != nil {
		return nil, fmt.Errorf("get driver route: parse route_data: %w", err)
	}
	return &r, nil
}

func (s *PgDriverStore) UpsertDriverRoute(ctx context.Context, route *domain.DriverRoute) error {
	if s.DB == nil {
		return errors.New("driver store: DB is nil")
	}
	if route == nil {
		return errors.New("upsert driver route: route is nil")
	}

	seqRaw, err := json.Marshal(route.RouteSequence)
	if err != nil {
		return fmt.Errorf("upsert driver route: marshal route_sequence: %w", err)
	}
	dataRaw, err := json.Marshal(route.RouteData)
	if err != nil {
		return fmt.Errorf("upsert driver route: marshal route_data: %w", err)
	}

	query := `
	INSERT INTO driver_routes (
		driver_id,
		route_sequence,
		route_data,
		total_distance_km,
		duration_minutes,
		supplier_lon,
		supplier_lat,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (driver_id) DO UPDATE SET
		route_sequence = EXCLUDED.route_sequence,
		route_data = EXCLUDED.route_data,
		total_distance_km = EXCLUDED.total_distance_km,
		duration_minutes = EXCLUDED.duration_minutes,
		supplier_lon = EXCLUDED.supplier_lon,
		supplier_lat = EXCLUDED.supplier_lat,
		updated_at = NOW();
	`

	_, err = s.DB.ExecContext(ctx, query,
		route.DriverID,
		seqRaw,
		dataRaw,
		route.TotalDistanceKm,
		route.DurationMinutes,
		route.SupplierLocation.Lon,
		route.SupplierLocation.Lat,
	)
	if err != nil {
		return fmt.Errorf("upsert driver route: %w", err)
	}
	return nil
}
