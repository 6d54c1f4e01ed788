package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/citytransit/transit-service/internal/api/dto"
	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/service"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// PricingHandler exposes the public price list and admin price management.
type PricingHandler struct {
	pricing *service.PricingService
}

// NewPricingHandler constructs handler.
func NewPricingHandler(pricingService *service.PricingService) *PricingHandler {
	return &PricingHandler{pricing: pricingService}
}

// List handles GET /pricing.
func (h *PricingHandler) List(c *fiber.Ctx) error {
	records, err := h.pricing.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPricingResponses(records)})
}

// GetByType handles GET /pricing/:type.
func (h *PricingHandler) GetByType(c *fiber.Ctx) error {
	record, err := h.pricing.GetActiveByType(c.UserContext(), domain.TicketType(c.Params("type")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPricingResponse(record)})
}

// SetPrice handles POST /admin/pricing.
func (h *PricingHandler) SetPrice(c *fiber.Ctx) error {
	var req dto.SetPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.pricing.SetPrice(c.UserContext(), service.PricingCreateInput{
		TicketType:  req.TicketType,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPricingResponse(record)})
}

// Update handles PATCH /admin/pricing/:type.
func (h *PricingHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdatePricingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.pricing.UpdatePricing(c.UserContext(), domain.TicketType(c.Params("type")), service.PricingUpdateInput{
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPricingResponse(record)})
}

// History handles GET /admin/pricing/:type/history.
func (h *PricingHandler) History(c *fiber.Ctx) error {
	records, err := h.pricing.History(c.UserContext(), domain.TicketType(c.Params("type")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPricingResponses(records)})
}

// ListAll handles GET /admin/pricing including replaced records.
func (h *PricingHandler) ListAll(c *fiber.Ctx) error {
	records, err := h.pricing.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPricingResponses(records)})
}
