package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/citytransit/transit-service/internal/api/dto"
	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/service"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// RoutesHandler exposes the route catalog plus admin route management.
type RoutesHandler struct {
	routes *service.RouteService
}

// NewRoutesHandler constructs handler.
func NewRoutesHandler(routeService *service.RouteService) *RoutesHandler {
	return &RoutesHandler{routes: routeService}
}

// List handles GET /routes. Supports filtering by transport type, stop,
// free-text search, or the currently operating window.
func (h *RoutesHandler) List(c *fiber.Ctx) error {
	if term := c.Query("q"); term != "" {
		routes, err := h.routes.SearchRoutes(c.UserContext(), term)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewRouteResponses(routes)})
	}
	if tt := c.Query("transport_type"); tt != "" {
		routes, err := h.routes.ListByTransportType(c.UserContext(), domain.TransportType(tt))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewRouteResponses(routes)})
	}
	if stop := c.Query("stop"); stop != "" {
		routes, err := h.routes.ListByStop(c.UserContext(), stop)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewRouteResponses(routes)})
	}
	if c.QueryBool("operating_now") {
		routes, err := h.routes.ListOperatingNow(c.UserContext(), time.Now())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewRouteResponses(routes)})
	}

	page, pageSize, offset := pageParams(c)
	routes, total, err := h.routes.ListRoutes(c.UserContext(), pageSize, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPagedResponse(dto.NewRouteResponses(routes), page, pageSize, total)})
}

// Get handles GET /routes/:id.
func (h *RoutesHandler) Get(c *fiber.Ctx) error {
	route, err := h.routes.GetRoute(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRouteResponse(route)})
}

// Create handles POST /admin/routes.
func (h *RoutesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	route, err := h.routes.CreateRoute(c.UserContext(), service.RouteCreateInput{
		RouteName:          req.RouteName,
		Description:        req.Description,
		TransportType:      req.TransportType,
		Stops:              req.Stops,
		OperatingStartTime: req.OperatingStartTime,
		OperatingEndTime:   req.OperatingEndTime,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRouteResponse(route)})
}

// Update handles PATCH /admin/routes/:id.
func (h *RoutesHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	route, err := h.routes.UpdateRoute(c.UserContext(), c.Params("id"), service.RouteUpdateInput{
		RouteName:          req.RouteName,
		Description:        req.Description,
		TransportType:      req.TransportType,
		Stops:              req.Stops,
		OperatingStartTime: req.OperatingStartTime,
		OperatingEndTime:   req.OperatingEndTime,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRouteResponse(route)})
}

// ListAll handles GET /admin/routes, including deactivated routes.
func (h *RoutesHandler) ListAll(c *fiber.Ctx) error {
	page, pageSize, offset := pageParams(c)
	routes, total, err := h.routes.ListAllRoutes(c.UserContext(), pageSize, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPagedResponse(dto.NewRouteResponses(routes), page, pageSize, total)})
}

// GetAny handles GET /admin/routes/:id regardless of the active flag.
func (h *RoutesHandler) GetAny(c *fiber.Ctx) error {
	route, err := h.routes.GetRouteAny(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRouteResponse(route)})
}

// Deactivate handles DELETE /admin/routes/:id.
func (h *RoutesHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.routes.DeactivateRoute(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deactivated": true}})
}

// Activate handles POST /admin/routes/:id/activate.
func (h *RoutesHandler) Activate(c *fiber.Ctx) error {
	if err := h.routes.ActivateRoute(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"activated": true}})
}
