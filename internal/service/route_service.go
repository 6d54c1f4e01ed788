package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/repository"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// RouteService manages the transit route catalog.
type RouteService struct {
	routes repository.RouteRepository
}

// RouteDependencies bundles repositories for route service.
type RouteDependencies struct {
	RouteRepo repository.RouteRepository
}

// RouteCreateInput describes route creation payload.
type RouteCreateInput struct {
	RouteName          string
	Description        string
	TransportType      domain.TransportType
	Stops              []string
	OperatingStartTime string
	OperatingEndTime   string
}

// RouteUpdateInput carries optional route changes. Nil fields stay as they
// are.
type RouteUpdateInput struct {
	RouteName          *string
	Description        *string
	TransportType      *domain.TransportType
	Stops              []string
	OperatingStartTime *string
	OperatingEndTime   *string
}

// NewRouteService constructs the service.
func NewRouteService(deps RouteDependencies) *RouteService {
	return &RouteService{routes: deps.RouteRepo}
}

// CreateRoute registers a new route. Names are unique among active routes.
func (s *RouteService) CreateRoute(ctx context.Context, input RouteCreateInput) (*domain.Route, error) {
	name := strings.TrimSpace(input.RouteName)
	if name == "" {
		return nil, apperrors.NewValidationError("route name must not be empty", nil)
	}
	if !domain.ValidTransportType(input.TransportType) {
		return nil, apperrors.NewValidationError("unknown transport type", map[string]any{"transport_type": input.TransportType})
	}
	stops := normalizeStops(input.Stops)
	if !domain.ValidateStops(stops) {
		return nil, apperrors.NewValidationError("routes need at least two distinct non-empty stops", nil)
	}
	if _, err := s.routes.GetActiveByName(ctx, name); err == nil {
		return nil, apperrors.NewConflict("route name already in use", map[string]any{"route_name": name})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	route := &domain.Route{
		RouteName:          name,
		Description:        strings.TrimSpace(input.Description),
		TransportType:      input.TransportType,
		Stops:              stops,
		OperatingStartTime: strings.TrimSpace(input.OperatingStartTime),
		OperatingEndTime:   strings.TrimSpace(input.OperatingEndTime),
		Active:             true,
	}
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, err
	}
	return route, nil
}

// UpdateRoute applies partial changes to an existing route.
func (s *RouteService) UpdateRoute(ctx context.Context, id string, input RouteUpdateInput) (*domain.Route, error) {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.RouteName != nil {
		name := strings.TrimSpace(*input.RouteName)
		if name == "" {
			return nil, apperrors.NewValidationError("route name must not be empty", nil)
		}
		if !strings.EqualFold(name, route.RouteName) {
			if other, err := s.routes.GetActiveByName(ctx, name); err == nil && other.ID != route.ID {
				return nil, apperrors.NewConflict("route name already in use", map[string]any{"route_name": name})
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		}
		route.RouteName = name
	}
	if input.Description != nil {
		route.Description = strings.TrimSpace(*input.Description)
	}
	if input.TransportType != nil {
		if !domain.ValidTransportType(*input.TransportType) {
			return nil, apperrors.NewValidationError("unknown transport type", map[string]any{"transport_type": *input.TransportType})
		}
		route.TransportType = *input.TransportType
	}
	if input.Stops != nil {
		stops := normalizeStops(input.Stops)
		if !domain.ValidateStops(stops) {
			return nil, apperrors.NewValidationError("routes need at least two distinct non-empty stops", nil)
		}
		route.Stops = stops
	}
	if input.OperatingStartTime != nil {
		route.OperatingStartTime = strings.TrimSpace(*input.OperatingStartTime)
	}
	if input.OperatingEndTime != nil {
		route.OperatingEndTime = strings.TrimSpace(*input.OperatingEndTime)
	}
	if err := s.routes.Update(ctx, route); err != nil {
		return nil, err
	}
	return route, nil
}

// DeactivateRoute soft-deletes a route. Existing usage records keep
// referencing it.
func (s *RouteService) DeactivateRoute(ctx context.Context, id string) error {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !route.Active {
		return nil
	}
	route.Active = false
	return s.routes.Update(ctx, route)
}

// ActivateRoute re-enables a soft-deleted route.
func (s *RouteService) ActivateRoute(ctx context.Context, id string) error {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if route.Active {
		return nil
	}
	route.Active = true
	return s.routes.Update(ctx, route)
}

// GetRoute returns an active route by id.
func (s *RouteService) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	return s.routes.GetActiveByID(ctx, id)
}

// GetRouteAny returns a route regardless of its active flag, for admins.
func (s *RouteService) GetRouteAny(ctx context.Context, id string) (*domain.Route, error) {
	return s.routes.GetByID(ctx, id)
}

// ListRoutes returns active routes, paginated.
func (s *RouteService) ListRoutes(ctx context.Context, limit, offset int) ([]domain.Route, int64, error) {
	return s.routes.ListActivePaged(ctx, limit, offset)
}

// ListAllRoutes returns every route including deactivated ones, for admins.
func (s *RouteService) ListAllRoutes(ctx context.Context, limit, offset int) ([]domain.Route, int64, error) {
	return s.routes.ListAll(ctx, limit, offset)
}

// SearchRoutes matches active routes by name or description.
func (s *RouteService) SearchRoutes(ctx context.Context, term string) ([]domain.Route, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.routes.ListActive(ctx)
	}
	return s.routes.SearchActive(ctx, term)
}

// ListByTransportType returns active routes for one transport type.
func (s *RouteService) ListByTransportType(ctx context.Context, transportType domain.TransportType) ([]domain.Route, error) {
	if !domain.ValidTransportType(transportType) {
		return nil, apperrors.NewValidationError("unknown transport type", map[string]any{"transport_type": transportType})
	}
	return s.routes.ListByTransportType(ctx, transportType)
}

// ListByStop returns active routes serving the named stop.
func (s *RouteService) ListByStop(ctx context.Context, stop string) ([]domain.Route, error) {
	stop = strings.TrimSpace(stop)
	if stop == "" {
		return nil, apperrors.NewValidationError("stop must not be empty", nil)
	}
	return s.routes.ListByStop(ctx, stop)
}

// ListOperatingNow filters active routes down to those inside their
// operating window at the given instant.
func (s *RouteService) ListOperatingNow(ctx context.Context, now time.Time) ([]domain.Route, error) {
	routes, err := s.routes.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	operating := routes[:0]
	for _, route := range routes {
		if route.OperatingAt(now) {
			operating = append(operating, route)
		}
	}
	return operating, nil
}

func normalizeStops(stops []string) []string {
	out := make([]string, 0, len(stops))
	for _, stop := range stops {
		out = append(out, strings.TrimSpace(stop))
	}
	return out
}
