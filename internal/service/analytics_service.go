package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/repository"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// AnalyticsService answers reporting queries for the admin dashboard.
// Aggregation happens in SQL; this layer only shapes periods and results.
type AnalyticsService struct {
	tickets repository.TicketRepository
	usages  repository.UsageRepository
	routes  repository.RouteRepository
	users   repository.UserRepository
	now     func() time.Time
}

// AnalyticsDependencies bundles repositories for analytics service.
type AnalyticsDependencies struct {
	TicketRepo repository.TicketRepository
	UsageRepo  repository.UsageRepository
	RouteRepo  repository.RouteRepository
	UserRepo   repository.UserRepository
}

// Period is a half-open reporting interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// DashboardStats is the headline admin overview.
type DashboardStats struct {
	TotalUsers        int64
	TotalRoutes       int64
	TotalTickets      int64
	TicketsByStatus   map[domain.TicketStatus]int64
	TicketsSoldToday  int64
	RevenueToday      decimal.Decimal
	RidesToday        int64
	RevenueLast30Days decimal.Decimal
	TicketsLast30Days int64
	RidesLast30Days   int64
	RoutesByTransport map[domain.TransportType]int64
	UsersByRole       map[domain.UserRole]int64
}

// RevenueReport summarizes sales over a period.
type RevenueReport struct {
	Period  Period
	Revenue decimal.Decimal
	Tickets int64
	ByType  []repository.TypeSales
}

// UsageReport summarizes ridership over a period.
type UsageReport struct {
	Period      Period
	TotalRides  int64
	Daily       []repository.DailyUsage
	ByTransport map[domain.TransportType]int64
	TopRoutes   []repository.RouteUsage
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	return &AnalyticsService{
		tickets: deps.TicketRepo,
		usages:  deps.UsageRepo,
		routes:  deps.RouteRepo,
		users:   deps.UserRepo,
		now:     time.Now,
	}
}

// ResolvePeriod validates an optional period, defaulting to the last 30
// days ending now.
func (s *AnalyticsService) ResolvePeriod(start, end *time.Time) (Period, error) {
	now := s.now().UTC()
	p := Period{Start: now.AddDate(0, 0, -30), End: now}
	if start != nil {
		p.Start = start.UTC()
	}
	if end != nil {
		p.End = end.UTC()
	}
	if !p.Start.Before(p.End) {
		return Period{}, apperrors.NewValidationError("period start must precede end", nil)
	}
	return p, nil
}

// Dashboard assembles the headline stats.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := s.now().UTC()
	today := Period{Start: now.Truncate(24 * time.Hour), End: now}
	last30 := Period{Start: now.AddDate(0, 0, -30), End: now}

	stats := &DashboardStats{}
	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalRoutes, err = s.routes.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalTickets, err = s.tickets.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TicketsByStatus, err = s.tickets.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.TicketsSoldToday, err = s.tickets.CountPurchasedBetween(ctx, today.Start, today.End); err != nil {
		return nil, err
	}
	if stats.RevenueToday, err = s.tickets.RevenueBetween(ctx, today.Start, today.End); err != nil {
		return nil, err
	}
	if stats.RidesToday, err = s.usages.CountBetween(ctx, today.Start, today.End); err != nil {
		return nil, err
	}
	if stats.RevenueLast30Days, err = s.tickets.RevenueBetween(ctx, last30.Start, last30.End); err != nil {
		return nil, err
	}
	if stats.TicketsLast30Days, err = s.tickets.CountPurchasedBetween(ctx, last30.Start, last30.End); err != nil {
		return nil, err
	}
	if stats.RidesLast30Days, err = s.usages.CountBetween(ctx, last30.Start, last30.End); err != nil {
		return nil, err
	}
	if stats.RoutesByTransport, err = s.routes.CountByTransportType(ctx); err != nil {
		return nil, err
	}
	if stats.UsersByRole, err = s.users.CountByRole(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// Revenue builds a sales report for the period.
func (s *AnalyticsService) Revenue(ctx context.Context, period Period) (*RevenueReport, error) {
	revenue, err := s.tickets.RevenueBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	count, err := s.tickets.CountPurchasedBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	byType, err := s.tickets.SalesByType(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	return &RevenueReport{Period: period, Revenue: revenue, Tickets: count, ByType: byType}, nil
}

// Usage builds a ridership report for the period.
func (s *AnalyticsService) Usage(ctx context.Context, period Period, topRoutes int) (*UsageReport, error) {
	total, err := s.usages.CountBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	daily, err := s.usages.DailyCounts(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	byTransport, err := s.usages.CountByTransportType(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	popular, err := s.usages.PopularRoutes(ctx, period.Start, period.End, topRoutes)
	if err != nil {
		return nil, err
	}
	return &UsageReport{
		Period:      period,
		TotalRides:  total,
		Daily:       daily,
		ByTransport: byTransport,
		TopRoutes:   popular,
	}, nil
}

// SalesByType returns per-type sales for the period.
func (s *AnalyticsService) SalesByType(ctx context.Context, period Period) ([]repository.TypeSales, error) {
	return s.tickets.SalesByType(ctx, period.Start, period.End)
}

// TopPurchasers returns the heaviest buyers for the period.
func (s *AnalyticsService) TopPurchasers(ctx context.Context, period Period, limit int) ([]repository.TopPurchaser, error) {
	return s.tickets.TopPurchasers(ctx, period.Start, period.End, limit)
}

// PopularRoutes returns the most ridden routes for the period.
func (s *AnalyticsService) PopularRoutes(ctx context.Context, period Period, limit int) ([]repository.RouteUsage, error) {
	return s.usages.PopularRoutes(ctx, period.Start, period.End, limit)
}
