package dto

import (
	"time"

	"github.com/citytransit/transit-service/internal/domain"
)

// CreateRouteRequest payload.
type CreateRouteRequest struct {
	RouteName          string               `json:"route_name"`
	Description        string               `json:"description"`
	TransportType      domain.TransportType `json:"transport_type"`
	Stops              []string             `json:"stops"`
	OperatingStartTime string               `json:"operating_start_time"`
	OperatingEndTime   string               `json:"operating_end_time"`
}

// UpdateRouteRequest payload. Absent fields keep their value.
type UpdateRouteRequest struct {
	RouteName          *string               `json:"route_name"`
	Description        *string               `json:"description"`
	TransportType      *domain.TransportType `json:"transport_type"`
	Stops              []string              `json:"stops"`
	OperatingStartTime *string               `json:"operating_start_time"`
	OperatingEndTime   *string               `json:"operating_end_time"`
}

// RouteResponse is the public route shape.
type RouteResponse struct {
	ID                 string               `json:"id"`
	RouteName          string               `json:"route_name"`
	Description        string               `json:"description"`
	TransportType      domain.TransportType `json:"transport_type"`
	Stops              []string             `json:"stops"`
	OperatingStartTime string               `json:"operating_start_time"`
	OperatingEndTime   string               `json:"operating_end_time"`
	Active             bool                 `json:"active"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// NewRouteResponse maps a domain route.
func NewRouteResponse(route *domain.Route) RouteResponse {
	stops := route.Stops
	if stops == nil {
		stops = []string{}
	}
	return RouteResponse{
		ID:                 route.ID,
		RouteName:          route.RouteName,
		Description:        route.Description,
		TransportType:      route.TransportType,
		Stops:              stops,
		OperatingStartTime: route.OperatingStartTime,
		OperatingEndTime:   route.OperatingEndTime,
		Active:             route.Active,
		CreatedAt:          route.CreatedAt,
		UpdatedAt:          route.UpdatedAt,
	}
}

// NewRouteResponses maps a route slice.
func NewRouteResponses(routes []domain.Route) []RouteResponse {
	out := make([]RouteResponse, 0, len(routes))
	for i := range routes {
		out = append(out, NewRouteResponse(&routes[i]))
	}
	return out
}
