package zone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-dispatch-service/internal/domain"
)

// PgZoneProvider serves the delivery-zone polygon from Postgres. The ring
// changes rarely, so it is held in memory and refreshed only after ttl.
type PgZoneProvider struct {
	DB  *sql.DB
	TTL time.Duration

	mu        sync.Mutex
	polygon   []domain.Coordinate
	fetchedAt time.Time
	now       func() time.Time
}

func NewPgZoneProvider(db *sql.DB, ttl time.Duration) *PgZoneProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PgZoneProvider{DB: db, TTL: ttl, now: time.Now}
}

func (p *PgZoneProvider) Polygon(ctx context.Context) ([]domain.Coordinate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.polygon != nil && p.now().Sub(p.fetchedAt) < p.TTL {
		return p.polygon, nil
	}

	ring, err := p.fetch(ctx)
	if err != nil {
		// Serve the stale ring rather than failing a zone check outright.
		if p.polygon != nil {
			return p.polygon, nil
		}
		return nil, err
	}

	p.polygon = ring
	p.fetchedAt = p.now()
	return ring, nil
}

func (p *PgZoneProvider) fetch(ctx context.Context) ([]domain.Coordinate, error) {
	if p.DB == nil {
		return nil, errors.New("zone provider: DB is nil")
	}

	query := `
	SELECT lon, lat
	FROM delivery_zone
	ORDER BY position;
	`

	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load delivery zone: query delivery_zone table: %w", err)
	}
	defer rows.Close()

	ring := make([]domain.Coordinate, 0, 16)
	for rows.Next() {
		var c domain.Coordinate
		if err := rows.Scan(&c.Lon, &c.Lat); err != nil {
			return nil, fmt.Errorf("load delivery zone: scan row: %w", err)
		}
		ring = append(ring, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load delivery zone: row iteration: %w", err)
	}

	if len(ring) < 3 {
		return nil, fmt.Errorf("load delivery zone: polygon has %d vertices, need at least 3", len(ring))
	}
	return ring, nil
}

func (p *PgZoneProvider) ContainsPoint(ctx context.Context, c domain.Coordinate) (bool, error) {
	ring, err := p.Polygon(ctx)
	if err != nil {
		return false, err
	}
	return PointInPolygon(c, ring), nil
}

// PointInPolygon reports whether c lies inside the ring using the even-odd
// ray-casting rule. Points exactly on an edge may fall on either side.
func PointInPolygon(c domain.Coordinate, ring []domain.Coordinate) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > c.Lat) != (vj.Lat > c.Lat) {
			x := (vj.Lon-vi.Lon)*(c.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if c.Lon < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
