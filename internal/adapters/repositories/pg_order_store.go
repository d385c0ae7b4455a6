package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"delivery-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the OrderStore port.
type PgOrderStore struct{ DB *sql.DB }

func NewPgOrderStore(db *sql.DB) *PgOrderStore {
	return &PgOrderStore{DB: db}
}

const orderColumns = `
	id,
	status,
	driver_id,
	delivery_lon,
	delivery_lat,
	delivery_fee,
	delivery_sequence,
	estimated_delivery_time,
	created_at,
	updated_at
`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var driverID uuid.NullUUID
	var eta sql.NullTime

	err := row.Scan(
		&o.ID,
		&o.Status,
		&driverID,
		&o.DeliveryLocation.Lon,
		&o.DeliveryLocation.Lat,
		&o.DeliveryFee,
		&o.DeliverySequence,
		&eta,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		id := driverID.UUID
		o.DriverID = &id
	}
	if eta.Valid {
		t := eta.Time
		o.EstimatedDeliveryTime = &t
	}
	return &o, nil
}

func (s *PgOrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	if s.DB == nil {
		return errors.New("order store: DB is nil")
	}
	if order == nil {
		return errors.New("create order: order is nil")
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}

	query := `
	INSERT INTO orders (
		id,
		status,
		delivery_lon,
		delivery_lat,
		delivery_fee,
		delivery_sequence,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW());
	`

	_, err := s.DB.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.DeliveryLocation.Lon,
		order.DeliveryLocation.Lat,
		order.DeliveryFee,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *PgOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.DB == nil {
		return nil, errors.New("order store: DB is nil")
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1;`

	o, err := scanOrder(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order: %s: not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: scan row: %w", err)
	}
	return o, nil
}

// OrdersForDriver returns the driver's orders in the given statuses, oldest
// first. Route recomputation depends on that ordering being stable.
func (s *PgOrderStore) OrdersForDriver(ctx context.Context, driverID uuid.UUID, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	if s.DB == nil {
		return nil, errors.New("order store: DB is nil")
	}
	if len(statuses) == 0 {
		return []*domain.Order{}, nil
	}

	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}

	query := `
	SELECT ` + orderColumns + `
	FROM orders
	WHERE driver_id = $1
		AND status = ANY($2::text[])
	ORDER BY created_at ASC, id ASC;
	`

	rows, err := s.DB.QueryContext(ctx, query, driverID, names)
	if err != nil {
		return nil, fmt.Errorf("orders for driver: query orders table: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0, 8)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("orders for driver: scan row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders for driver: row iteration: %w", err)
	}
	return orders, nil
}

func (s *PgOrderStore) UpdateAssignment(ctx context.Context, orderID, driverID uuid.UUID) error {
	if s.DB == nil {
		return errors.New("order store: DB is nil")
	}

	query := `
	UPDATE orders
	SET driver_id = $2,
		status = $3,
		updated_at = NOW()
	WHERE id = $1;
	`

	res, err := s.DB.ExecContext(ctx, query, orderID, driverID, domain.OrderAssigned)
	if err != nil {
		return fmt.Errorf("update order assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order assignment: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update order assignment: %s: not found", orderID)
	}
	return nil
}

func (s *PgOrderStore) ClearAssignment(ctx context.Context, orderID uuid.UUID) error {
	if s.DB == nil {
		return errors.New("order store: DB is nil")
	}

	query := `
	UPDATE orders
	SET driver_id = NULL,
		status = $2,
		delivery_sequence = 0,
		estimated_delivery_time = NULL,
		updated_at = NOW()
	WHERE id = $1;
	`

	res, err := s.DB.ExecContext(ctx, query, orderID, domain.OrderPending)
	if err != nil {
		return fmt.Errorf("clear order assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear order assignment: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("clear order assignment: %s: not found", orderID)
	}
	return nil
}

func (s *PgOrderStore) UpdateSchedule(ctx context.Context, orderID uuid.UUID, sequence int, eta time.Time) error {
	if s.DB == nil {
		return errors.New("order store: DB is nil")
	}

	query := `
	UPDATE orders
	SET delivery_sequence = $2,
		estimated_delivery_time = $3,
		updated_at = NOW()
	WHERE id = $1;
	`

	res, err := s.DB.ExecContext(ctx, query, orderID, sequence, eta)
	if err != nil {
		return fmt.Errorf("update order schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order schedule: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update order schedule: %s: not found", orderID)
	}
	return nil
}
