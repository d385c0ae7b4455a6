package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"delivery-dispatch-service/internal/domain"
)

const driverGeoKey = "driver_locations"

// NearbyDriver is one hit from a radius query against the geo index.
type NearbyDriver struct {
	DriverID   uuid.UUID
	Location   domain.Coordinate
	DistanceKm float64
}

// RedisGeoIndex keeps the latest driver positions in a Redis geo set so
// radius queries do not have to scan the database.
type RedisGeoIndex struct {
	client *redis.Client
}

func NewRedisGeoIndex(client *redis.Client) *RedisGeoIndex {
	return &RedisGeoIndex{client: client}
}

func (g *RedisGeoIndex) UpdateLocation(ctx context.Context, driverID uuid.UUID, loc domain.Coordinate) error {
	if g.client == nil {
		return errors.New("geo index: client is nil")
	}

	err := g.client.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID.String(),
		Longitude: loc.Lon,
		Latitude:  loc.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geo index: geoadd: %w", err)
	}
	return nil
}

func (g *RedisGeoIndex) Remove(ctx context.Context, driverID uuid.UUID) error {
	if g.client == nil {
		return errors.New("geo index: client is nil")
	}
	if err := g.client.ZRem(ctx, driverGeoKey, driverID.String()).Err(); err != nil {
		return fmt.Errorf("geo index: zrem: %w", err)
	}
	return nil
}

// NearbyDrivers returns drivers within radiusKm of center, closest first.
func (g *RedisGeoIndex) NearbyDrivers(
	ctx context.Context,
	center domain.Coordinate,
	radiusKm float64,
	limit int,
) ([]NearbyDriver, error) {
	if g.client == nil {
		return nil, errors.New("geo index: client is nil")
	}
	if limit <= 0 {
		limit = 10
	}

	hits, err := g.client.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lon,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo index: geosearch: %w", err)
	}

	out := make([]NearbyDriver, 0, len(hits))
	for _, hit := range hits {
		id, err := uuid.Parse(hit.Name)
		if err != nil {
			continue
		}
		out = append(out, NearbyDriver{
			DriverID:   id,
			Location:   domain.Coordinate{Lon: hit.Longitude, Lat: hit.Latitude},
			DistanceKm: hit.Dist,
		})
	}
	return out, nil
}
