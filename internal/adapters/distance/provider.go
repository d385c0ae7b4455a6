package distance

import (
	"context"
	"errors"
	"fmt"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/geo"
	"delivery-dispatch-service/internal/logger"
	"delivery-dispatch-service/internal/platform/obs"
	"delivery-dispatch-service/internal/ports"
)

// ErrProviderUnavailable signals that no external routing provider is
// configured for an operation that needs one. Callers fall back to local
// heuristics.
var ErrProviderUnavailable = errors.New("external routing provider unavailable")

// Provider is the ordered distance strategy chain:
//
//	straight-line prefilter -> route cache -> external API -> estimate
//
// Each layer either answers or passes to the next; external failures are
// absorbed into the estimator, so DrivingDistance and BatchDistances never
// fail the caller. Only OptimizeStops surfaces errors, because sequence
// optimization has a separate local fallback.
type Provider struct {
	external    *GoogleProvider // nil when unconfigured
	cache       ports.RouteCache
	est         Estimator
	prefilterKm float64
	log         *logger.Logger
}

type Options struct {
	External    *GoogleProvider
	Cache       ports.RouteCache
	AvgSpeedKmh float64
	PrefilterKm float64
	Log         *logger.Logger
}

func NewProvider(opts Options) *Provider {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	return &Provider{
		external:    opts.External,
		cache:       opts.Cache,
		est:         NewEstimator(opts.AvgSpeedKmh),
		prefilterKm: opts.PrefilterKm,
		log:         log,
	}
}

// Estimator exposes the chain's straight-line estimator for callers that
// need the same road-factor math (the nearest-neighbor fallback).
func (p *Provider) Estimator() Estimator { return p.est }

// DrivingDistance returns the driving distance between two points. Legs
// longer than the prefilter threshold are estimated without touching the
// external service, bounding call volume and latency.
func (p *Provider) DrivingDistance(
	ctx context.Context,
	origin, destination domain.Coordinate,
) (ports.DistanceResult, error) {
	straightKm := geo.Haversine(origin, destination)
	if straightKm > p.prefilterKm {
		return p.est.FromStraightLine(straightKm), nil
	}

	dests := []domain.Coordinate{destination}
	if p.cache != nil {
		if cached, ok, err := p.cache.Get(ctx, origin, dests, false); err != nil {
			p.log.WithError(err).Warn("route cache read failed")
		} else if ok {
			return ports.DistanceResult{
				DistanceMeters:  cached.DistanceMeters,
				DurationSeconds: cached.DurationSeconds,
			}, nil
		}
	}

	if p.external == nil {
		return p.est.FromStraightLine(straightKm), nil
	}

	res, err := p.external.directions(ctx, origin, destination, nil, false)
	if err != nil {
		p.log.WithError(err).Warn("driving distance lookup failed, using estimate")
		return p.est.FromStraightLine(straightKm), nil
	}

	if p.cache != nil {
		err := p.cache.Set(ctx, origin, dests, false, ports.CachedRoute{
			Coordinates:     res.Coordinates,
			DistanceMeters:  res.DistanceMeters,
			DurationSeconds: res.DurationSeconds,
		})
		if err != nil {
			p.log.WithError(err).Warn("route cache write failed")
		}
	}

	return ports.DistanceResult{
		DistanceMeters:  res.DistanceMeters,
		DurationSeconds: res.DurationSeconds,
	}, nil
}

// BatchDistances computes the full origins x destinations matrix in one
// external call, falling back to independent estimates per pair.
func (p *Provider) BatchDistances(
	ctx context.Context,
	origins, destinations []domain.Coordinate,
) (_ [][]ports.DistanceResult, err error) {
	defer obs.Time(ctx, p.log, "distance.batch")(&err)

	if p.external != nil {
		matrix, err := p.external.distanceMatrix(ctx, origins, destinations)
		if err == nil {
			return matrix, nil
		}
		p.log.WithError(err).Warn("distance matrix lookup failed, using estimates")
	}

	out := make([][]ports.DistanceResult, 0, len(origins))
	for _, o := range origins {
		row := make([]ports.DistanceResult, 0, len(destinations))
		for _, d := range destinations {
			row = append(row, p.est.Between(o, d))
		}
		out = append(out, row)
	}
	return out, nil
}

// OptimizeStops delegates multi-stop sequencing to the external provider's
// waypoint optimization. It requires at least two stops and a configured
// provider; errors tell the caller to run its own heuristic instead.
func (p *Provider) OptimizeStops(
	ctx context.Context,
	origin domain.Coordinate,
	stops []domain.Coordinate,
) (_ ports.OptimizedRoute, err error) {
	defer obs.Time(ctx, p.log, "distance.optimize")(&err)

	if len(stops) < 2 {
		return ports.OptimizedRoute{}, fmt.Errorf("optimize stops: need at least 2 stops, got %d", len(stops))
	}
	if p.external == nil {
		return ports.OptimizedRoute{}, ErrProviderUnavailable
	}

	if p.cache != nil {
		if cached, ok, err := p.cache.Get(ctx, origin, stops, true); err != nil {
			p.log.WithError(err).Warn("route cache read failed")
		} else if ok && len(cached.Sequence) == len(stops) {
			return ports.OptimizedRoute{
				Sequence:        cached.Sequence,
				DistanceMeters:  cached.DistanceMeters,
				DurationSeconds: cached.DurationSeconds,
				Coordinates:     cached.Coordinates,
			}, nil
		}
	}

	last := stops[len(stops)-1]
	waypoints := stops[:len(stops)-1]

	res, err := p.external.directions(ctx, origin, last, waypoints, true)
	if err != nil {
		return ports.OptimizedRoute{}, fmt.Errorf("optimize stops: %w", err)
	}

	// The provider orders only the waypoints; the fixed destination stays
	// last in the visiting sequence.
	sequence := make([]int, 0, len(stops))
	if len(res.WaypointOrder) == len(waypoints) {
		sequence = append(sequence, res.WaypointOrder...)
	} else {
		for i := range waypoints {
			sequence = append(sequence, i)
		}
	}
	sequence = append(sequence, len(stops)-1)

	route := ports.OptimizedRoute{
		Sequence:        sequence,
		DistanceMeters:  res.DistanceMeters,
		DurationSeconds: res.DurationSeconds,
		Coordinates:     res.Coordinates,
	}

	if p.cache != nil {
		err := p.cache.Set(ctx, origin, stops, true, ports.CachedRoute{
			Coordinates:     route.Coordinates,
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: route.DurationSeconds,
			Sequence:        route.Sequence,
		})
		if err != nil {
			p.log.WithError(err).Warn("route cache write failed")
		}
	}

	return route, nil
}
