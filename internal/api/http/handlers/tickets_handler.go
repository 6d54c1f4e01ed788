package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/citytransit/transit-service/internal/api/dto"
	"github.com/citytransit/transit-service/internal/auth"
	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/repository"
	"github.com/citytransit/transit-service/internal/service"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// TicketsHandler manages ticket purchase, validation, and use endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Purchase handles POST /tickets.
func (h *TicketsHandler) Purchase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.PurchaseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.RouteID) == "" {
		return apperrors.NewValidationError("route_id required", nil)
	}
	ticket, err := h.tickets.Purchase(c.UserContext(), principal.User.ID, req.TicketType, req.RouteID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Validate handles POST /tickets/validate. The endpoint is public so gate
// hardware can call it without a rider token.
func (h *TicketsHandler) Validate(c *fiber.Ctx) error {
	var req dto.ValidateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketNumber) == "" {
		return apperrors.NewValidationError("ticket_number required", nil)
	}
	result, err := h.tickets.Validate(c.UserContext(), req.TicketNumber)
	if err != nil {
		return err
	}
	resp := dto.ValidationResponse{Valid: result.Valid, Reason: result.Reason}
	if result.Ticket != nil {
		ticket := dto.NewTicketResponse(result.Ticket)
		resp.Ticket = &ticket
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Use handles POST /tickets/use.
func (h *TicketsHandler) Use(c *fiber.Ctx) error {
	var req dto.UseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketNumber) == "" || strings.TrimSpace(req.RouteID) == "" {
		return apperrors.NewValidationError("ticket_number and route_id required", nil)
	}
	result, err := h.tickets.UseTicket(c.UserContext(), service.UseTicketInput{
		TicketNumber:    req.TicketNumber,
		RouteID:         req.RouteID,
		BoardingStop:    req.BoardingStop,
		DestinationStop: req.DestinationStop,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UseTicketResponse{
		Ticket:   dto.NewTicketResponse(result.Ticket),
		Usage:    dto.NewUsageResponse(result.Usage),
		Consumed: result.Consumed,
	}})
}

// Eligibility handles GET /tickets/eligibility/:type.
func (h *TicketsHandler) Eligibility(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticketType := domain.TicketType(strings.ToUpper(c.Params("type")))
	result, err := h.tickets.PurchaseEligibility(c.UserContext(), principal.User.ID, ticketType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EligibilityResponse{Eligible: result.Eligible, Reason: result.Reason}})
}

// ListMine handles GET /tickets. Supports a valid=true filter and
// type-specific validity views.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	switch c.Query("view") {
	case "valid":
		tickets, err := h.tickets.ListUserValidTickets(c.UserContext(), principal.User.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
	case "rides":
		tickets, err := h.tickets.ListUserValidRides(c.UserContext(), principal.User.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
	case "passes":
		tickets, err := h.tickets.ListUserValidPasses(c.UserContext(), principal.User.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
	}

	page, pageSize, offset := pageParams(c)
	tickets, total, err := h.tickets.ListUserTickets(c.UserContext(), principal.User.ID, pageSize, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPagedResponse(dto.NewTicketResponses(tickets), page, pageSize, total)})
}

// GetMine handles GET /tickets/:id.
func (h *TicketsHandler) GetMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.GetTicketForUser(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Cancel handles POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.Cancel(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTicketUsages handles GET /tickets/:id/usages.
func (h *TicketsHandler) ListTicketUsages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	usages, err := h.tickets.ListUsages(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUsageResponses(usages)})
}

// ListMyUsages handles GET /tickets/usages, the rider's ride history.
func (h *TicketsHandler) ListMyUsages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	page, pageSize, offset := pageParams(c)
	usages, total, err := h.tickets.ListUserUsages(c.UserContext(), principal.User.ID, pageSize, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPagedResponse(dto.NewUsageResponses(usages), page, pageSize, total)})
}

// ListAll handles GET /admin/tickets with filters.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	page, pageSize, offset := pageParams(c)
	filter := repository.TicketFilter{
		UserID:     c.Query("user_id"),
		Status:     domain.TicketStatus(c.Query("status")),
		TicketType: domain.TicketType(c.Query("ticket_type")),
		Limit:      pageSize,
		Offset:     offset,
	}
	from, err := queryTime(c, "purchased_from")
	if err != nil {
		return apperrors.NewValidationError("invalid purchased_from", nil)
	}
	to, err := queryTime(c, "purchased_to")
	if err != nil {
		return apperrors.NewValidationError("invalid purchased_to", nil)
	}
	filter.PurchasedFrom = from
	filter.PurchasedTo = to

	tickets, total, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPagedResponse(dto.NewTicketResponses(tickets), page, pageSize, total)})
}

// GetAny handles GET /admin/tickets/:id.
func (h *TicketsHandler) GetAny(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ProcessExpired handles POST /admin/tickets/process-expired for a manual
// sweep.
func (h *TicketsHandler) ProcessExpired(c *fiber.Ctx) error {
	count, err := h.tickets.ProcessExpired(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"expired": count}})
}

// CancelAny handles POST /admin/tickets/:id/cancel.
func (h *TicketsHandler) CancelAny(c *fiber.Ctx) error {
	ticket, err := h.tickets.CancelAny(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteUsage handles DELETE /admin/tickets/usages/:id.
func (h *TicketsHandler) DeleteUsage(c *fiber.Ctx) error {
	if err := h.tickets.DeleteUsage(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
