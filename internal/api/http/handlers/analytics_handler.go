package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/citytransit/transit-service/internal/api/dto"
	"github.com/citytransit/transit-service/internal/service"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// AnalyticsHandler exposes admin reporting endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analyticsService}
}

// Dashboard handles GET /admin/analytics/dashboard.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.analytics.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDashboardResponse(stats)})
}

// Revenue handles GET /admin/analytics/revenue.
func (h *AnalyticsHandler) Revenue(c *fiber.Ctx) error {
	period, err := h.period(c)
	if err != nil {
		return err
	}
	report, err := h.analytics.Revenue(c.UserContext(), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRevenueReportResponse(report)})
}

// Sales handles GET /admin/analytics/sales.
func (h *AnalyticsHandler) Sales(c *fiber.Ctx) error {
	period, err := h.period(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.SalesByType(c.UserContext(), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTypeSalesResponses(rows)})
}

// Usage handles GET /admin/analytics/usage.
func (h *AnalyticsHandler) Usage(c *fiber.Ctx) error {
	period, err := h.period(c)
	if err != nil {
		return err
	}
	report, err := h.analytics.Usage(c.UserContext(), period, queryInt(c, "top", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUsageReportResponse(report)})
}

// PopularRoutes handles GET /admin/analytics/routes/popular.
func (h *AnalyticsHandler) PopularRoutes(c *fiber.Ctx) error {
	period, err := h.period(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.PopularRoutes(c.UserContext(), period, queryInt(c, "limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRouteUsageResponses(rows)})
}

// TopPurchasers handles GET /admin/analytics/users/top.
func (h *AnalyticsHandler) TopPurchasers(c *fiber.Ctx) error {
	period, err := h.period(c)
	if err != nil {
		return err
	}
	rows, err := h.analytics.TopPurchasers(c.UserContext(), period, queryInt(c, "limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTopPurchaserResponses(rows)})
}

func (h *AnalyticsHandler) period(c *fiber.Ctx) (service.Period, error) {
	start, err := queryTime(c, "start")
	if err != nil {
		return service.Period{}, apperrors.NewValidationError("invalid start", nil)
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return service.Period{}, apperrors.NewValidationError("invalid end", nil)
	}
	return h.analytics.ResolvePeriod(start, end)
}
