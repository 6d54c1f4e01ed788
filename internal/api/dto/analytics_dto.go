package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/repository"
	"github.com/citytransit/transit-service/internal/service"
)

// DashboardResponse is the headline admin overview.
type DashboardResponse struct {
	TotalUsers        int64                          `json:"total_users"`
	TotalRoutes       int64                          `json:"total_routes"`
	TotalTickets      int64                          `json:"total_tickets"`
	TicketsByStatus   map[domain.TicketStatus]int64  `json:"tickets_by_status"`
	TicketsSoldToday  int64                          `json:"tickets_sold_today"`
	RevenueToday      decimal.Decimal                `json:"revenue_today"`
	RidesToday        int64                          `json:"rides_today"`
	RevenueLast30Days decimal.Decimal                `json:"revenue_last_30_days"`
	TicketsLast30Days int64                          `json:"tickets_last_30_days"`
	RidesLast30Days   int64                          `json:"rides_last_30_days"`
	RoutesByTransport map[domain.TransportType]int64 `json:"routes_by_transport"`
	UsersByRole       map[domain.UserRole]int64      `json:"users_by_role"`
}

// PeriodResponse is the reporting interval the numbers cover.
type PeriodResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TypeSalesResponse is one per-type sales row.
type TypeSalesResponse struct {
	TicketType domain.TicketType `json:"ticket_type"`
	Count      int64             `json:"count"`
	Revenue    decimal.Decimal   `json:"revenue"`
}

// RevenueReportResponse summarizes sales over a period.
type RevenueReportResponse struct {
	Period  PeriodResponse      `json:"period"`
	Revenue decimal.Decimal     `json:"revenue"`
	Tickets int64               `json:"tickets"`
	ByType  []TypeSalesResponse `json:"by_type"`
}

// DailyUsageResponse is one per-day ridership row.
type DailyUsageResponse struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// RouteUsageResponse is one route ridership row.
type RouteUsageResponse struct {
	RouteID       string               `json:"route_id"`
	RouteName     string               `json:"route_name"`
	TransportType domain.TransportType `json:"transport_type"`
	Count         int64                `json:"count"`
}

// UsageReportResponse summarizes ridership over a period.
type UsageReportResponse struct {
	Period      PeriodResponse                 `json:"period"`
	TotalRides  int64                          `json:"total_rides"`
	Daily       []DailyUsageResponse           `json:"daily"`
	ByTransport map[domain.TransportType]int64 `json:"by_transport"`
	TopRoutes   []RouteUsageResponse           `json:"top_routes"`
}

// TopPurchaserResponse is one heavy-buyer row.
type TopPurchaserResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Count    int64  `json:"count"`
}

// NewDashboardResponse maps the service stats.
func NewDashboardResponse(stats *service.DashboardStats) DashboardResponse {
	return DashboardResponse{
		TotalUsers:        stats.TotalUsers,
		TotalRoutes:       stats.TotalRoutes,
		TotalTickets:      stats.TotalTickets,
		TicketsByStatus:   stats.TicketsByStatus,
		TicketsSoldToday:  stats.TicketsSoldToday,
		RevenueToday:      stats.RevenueToday,
		RidesToday:        stats.RidesToday,
		RevenueLast30Days: stats.RevenueLast30Days,
		TicketsLast30Days: stats.TicketsLast30Days,
		RidesLast30Days:   stats.RidesLast30Days,
		RoutesByTransport: stats.RoutesByTransport,
		UsersByRole:       stats.UsersByRole,
	}
}

// NewRevenueReportResponse maps a revenue report.
func NewRevenueReportResponse(report *service.RevenueReport) RevenueReportResponse {
	byType := make([]TypeSalesResponse, 0, len(report.ByType))
	for _, row := range report.ByType {
		byType = append(byType, TypeSalesResponse(row))
	}
	return RevenueReportResponse{
		Period:  PeriodResponse(report.Period),
		Revenue: report.Revenue,
		Tickets: report.Tickets,
		ByType:  byType,
	}
}

// NewUsageReportResponse maps a ridership report.
func NewUsageReportResponse(report *service.UsageReport) UsageReportResponse {
	daily := make([]DailyUsageResponse, 0, len(report.Daily))
	for _, row := range report.Daily {
		daily = append(daily, DailyUsageResponse(row))
	}
	return UsageReportResponse{
		Period:      PeriodResponse(report.Period),
		TotalRides:  report.TotalRides,
		Daily:       daily,
		ByTransport: report.ByTransport,
		TopRoutes:   NewRouteUsageResponses(report.TopRoutes),
	}
}

// NewTypeSalesResponses maps per-type sales rows.
func NewTypeSalesResponses(rows []repository.TypeSales) []TypeSalesResponse {
	out := make([]TypeSalesResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, TypeSalesResponse(row))
	}
	return out
}

// NewRouteUsageResponses maps route ridership rows.
func NewRouteUsageResponses(rows []repository.RouteUsage) []RouteUsageResponse {
	out := make([]RouteUsageResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, RouteUsageResponse(row))
	}
	return out
}

// NewTopPurchaserResponses maps heavy-buyer rows.
func NewTopPurchaserResponses(rows []repository.TopPurchaser) []TopPurchaserResponse {
	out := make([]TopPurchaserResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, TopPurchaserResponse(row))
	}
	return out
}
