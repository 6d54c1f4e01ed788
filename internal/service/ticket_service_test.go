package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/events"
	"github.com/citytransit/transit-service/internal/repository"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

type stubTicketRepo struct {
	createFn            func(ctx context.Context, ticket *domain.Ticket) error
	purchaseUnlimitedFn func(ctx context.Context, ticket *domain.Ticket, now time.Time) error
	updateFn            func(ctx context.Context, ticket *domain.Ticket) error
	getByIDFn           func(ctx context.Context, id string) (*domain.Ticket, error)
	getByNumberFn       func(ctx context.Context, number string) (*domain.Ticket, error)
	userHasValidPassFn  func(ctx context.Context, userID string, now time.Time) (bool, error)
	markExpiredFn       func(ctx context.Context, now time.Time) (int64, error)
}

func (s *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if s.createFn == nil {
		panic("unexpected Create call")
	}
	return s.createFn(ctx, ticket)
}

func (s *stubTicketRepo) PurchaseUnlimited(ctx context.Context, ticket *domain.Ticket, now time.Time) error {
	if s.purchaseUnlimitedFn == nil {
		panic("unexpected PurchaseUnlimited call")
	}
	return s.purchaseUnlimitedFn(ctx, ticket, now)
}

func (s *stubTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if s.updateFn == nil {
		panic("unexpected Update call")
	}
	return s.updateFn(ctx, ticket)
}

func (s *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if s.getByIDFn == nil {
		panic("unexpected GetByID call")
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubTicketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	if s.getByNumberFn == nil {
		panic("unexpected GetByNumber call")
	}
	return s.getByNumberFn(ctx, number)
}

func (s *stubTicketRepo) ListByUser(context.Context, string, int, int) ([]domain.Ticket, int64, error) {
	panic("unexpected ListByUser call")
}

func (s *stubTicketRepo) ListUserValid(context.Context, string, time.Time) ([]domain.Ticket, error) {
	panic("unexpected ListUserValid call")
}

func (s *stubTicketRepo) ListUserValidRides(context.Context, string, time.Time) ([]domain.Ticket, error) {
	panic("unexpected ListUserValidRides call")
}

func (s *stubTicketRepo) ListUserValidPasses(context.Context, string, time.Time) ([]domain.Ticket, error) {
	panic("unexpected ListUserValidPasses call")
}

func (s *stubTicketRepo) UserHasValidPass(ctx context.Context, userID string, now time.Time) (bool, error) {
	if s.userHasValidPassFn == nil {
		panic("unexpected UserHasValidPass call")
	}
	return s.userHasValidPassFn(ctx, userID, now)
}

func (s *stubTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, int64, error) {
	panic("unexpected ListWithFilter call")
}

func (s *stubTicketRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.markExpiredFn == nil {
		panic("unexpected MarkExpired call")
	}
	return s.markExpiredFn(ctx, now)
}

func (s *stubTicketRepo) CountByStatus(context.Context) (map[domain.TicketStatus]int64, error) {
	panic("unexpected CountByStatus call")
}

func (s *stubTicketRepo) Count(context.Context) (int64, error) {
	panic("unexpected Count call")
}

func (s *stubTicketRepo) CountPurchasedBetween(context.Context, time.Time, time.Time) (int64, error) {
	panic("unexpected CountPurchasedBetween call")
}

func (s *stubTicketRepo) RevenueBetween(context.Context, time.Time, time.Time) (decimal.Decimal, error) {
	panic("unexpected RevenueBetween call")
}

func (s *stubTicketRepo) SalesByType(context.Context, time.Time, time.Time) ([]repository.TypeSales, error) {
	panic("unexpected SalesByType call")
}

func (s *stubTicketRepo) TopPurchasers(context.Context, time.Time, time.Time, int) ([]repository.TopPurchaser, error) {
	panic("unexpected TopPurchasers call")
}

type stubUsageRepo struct {
	createFn func(ctx context.Context, usage *domain.TicketUsage) error
}

func (s *stubUsageRepo) Create(ctx context.Context, usage *domain.TicketUsage) error {
	if s.createFn == nil {
		panic("unexpected usage Create call")
	}
	return s.createFn(ctx, usage)
}

func (s *stubUsageRepo) Delete(context.Context, string) error {
	panic("unexpected usage Delete call")
}

func (s *stubUsageRepo) ListByTicket(context.Context, string) ([]domain.TicketUsage, error) {
	panic("unexpected ListByTicket call")
}

func (s *stubUsageRepo) ListByUser(context.Context, string, int, int) ([]domain.TicketUsage, int64, error) {
	panic("unexpected ListByUser call")
}

func (s *stubUsageRepo) CountBetween(context.Context, time.Time, time.Time) (int64, error) {
	panic("unexpected CountBetween call")
}

func (s *stubUsageRepo) DailyCounts(context.Context, time.Time, time.Time) ([]repository.DailyUsage, error) {
	panic("unexpected DailyCounts call")
}

func (s *stubUsageRepo) PopularRoutes(context.Context, time.Time, time.Time, int) ([]repository.RouteUsage, error) {
	panic("unexpected PopularRoutes call")
}

func (s *stubUsageRepo) CountByTransportType(context.Context, time.Time, time.Time) (map[domain.TransportType]int64, error) {
	panic("unexpected CountByTransportType call")
}

type stubRouteRepo struct {
	getActiveByIDFn func(ctx context.Context, id string) (*domain.Route, error)
}

func (s *stubRouteRepo) Create(context.Context, *domain.Route) error {
	panic("unexpected route Create call")
}

func (s *stubRouteRepo) Update(context.Context, *domain.Route) error {
	panic("unexpected route Update call")
}

func (s *stubRouteRepo) GetByID(context.Context, string) (*domain.Route, error) {
	panic("unexpected route GetByID call")
}

func (s *stubRouteRepo) GetActiveByID(ctx context.Context, id string) (*domain.Route, error) {
	if s.getActiveByIDFn == nil {
		panic("unexpected GetActiveByID call")
	}
	return s.getActiveByIDFn(ctx, id)
}

func (s *stubRouteRepo) GetActiveByName(context.Context, string) (*domain.Route, error) {
	panic("unexpected GetActiveByName call")
}

func (s *stubRouteRepo) ListActive(context.Context) ([]domain.Route, error) {
	panic("unexpected ListActive call")
}

func (s *stubRouteRepo) ListActivePaged(context.Context, int, int) ([]domain.Route, int64, error) {
	panic("unexpected ListActivePaged call")
}

func (s *stubRouteRepo) ListAll(context.Context, int, int) ([]domain.Route, int64, error) {
	panic("unexpected route ListAll call")
}

func (s *stubRouteRepo) SearchActive(context.Context, string) ([]domain.Route, error) {
	panic("unexpected SearchActive call")
}

func (s *stubRouteRepo) ListByTransportType(context.Context, domain.TransportType) ([]domain.Route, error) {
	panic("unexpected ListByTransportType call")
}

func (s *stubRouteRepo) ListByStop(context.Context, string) ([]domain.Route, error) {
	panic("unexpected ListByStop call")
}

func (s *stubRouteRepo) CountByTransportType(context.Context) (map[domain.TransportType]int64, error) {
	panic("unexpected route CountByTransportType call")
}

func (s *stubRouteRepo) Count(context.Context) (int64, error) {
	panic("unexpected route Count call")
}

type fixedPrices map[domain.TicketType]decimal.Decimal

func (p fixedPrices) CurrentPrice(_ context.Context, ticketType domain.TicketType) (decimal.Decimal, error) {
	price, ok := p[ticketType]
	if !ok {
		return decimal.Zero, apperrors.NewNotFound("pricing", nil)
	}
	return price, nil
}

type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func newTestTicketService(tickets *stubTicketRepo, usages *stubUsageRepo, routes *stubRouteRepo, now time.Time) (*TicketService, *captureDispatcher) {
	dispatcher := &captureDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		UsageRepo:  usages,
		RouteRepo:  routes,
		Prices: fixedPrices{
			domain.TicketTypeRide:    decimal.RequireFromString("2.50"),
			domain.TicketTypeMonthly: decimal.RequireFromString("75.00"),
			domain.TicketTypeYearly:  decimal.RequireFromString("800.00"),
		},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	svc.now = func() time.Time { return now }
	return svc, dispatcher
}

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Code
}

func activeRouteRepo() *stubRouteRepo {
	return &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return testRoute(), nil },
	}
}

func TestPurchaseRide(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	tickets := &stubTicketRepo{
		createFn: func(_ context.Context, ticket *domain.Ticket) error {
			ticket.ID = "t-1"
			return nil
		},
	}
	svc, dispatcher := newTestTicketService(tickets, &stubUsageRepo{}, activeRouteRepo(), now)

	ticket, err := svc.Purchase(context.Background(), "u-1", domain.TicketTypeRide, "r-1")
	if err != nil {
		t.Fatalf("Purchase returned error: %v", err)
	}
	if !ticket.Price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("price = %s, want 2.50", ticket.Price)
	}
	if !ticket.ValidFrom.Equal(now) {
		t.Errorf("ValidFrom = %v, want %v", ticket.ValidFrom, now)
	}
	if !ticket.ValidUntil.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("ValidUntil = %v, want %v", ticket.ValidUntil, now.Add(24*time.Hour))
	}
	if !strings.HasPrefix(ticket.TicketNumber, "RD-20250301093000-") {
		t.Errorf("ticket number %q lacks the RD-timestamp prefix", ticket.TicketNumber)
	}
	if len(ticket.TicketNumber) != len("RD-20250301093000-ABCD") {
		t.Errorf("ticket number %q has wrong length", ticket.TicketNumber)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventTicketPurchased {
		t.Errorf("expected one ticket_purchased event, got %v", dispatcher.published)
	}
}

func TestPurchasePassRejectedWhileOneIsHeld(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	tickets := &stubTicketRepo{
		userHasValidPassFn: func(context.Context, string, time.Time) (bool, error) {
			return true, nil
		},
	}
	svc, dispatcher := newTestTicketService(tickets, &stubUsageRepo{}, activeRouteRepo(), now)

	_, err := svc.Purchase(context.Background(), "u-1", domain.TicketTypeYearly, "r-1")
	if code := domainErrCode(t, err); code != "DUPLICATE_PASS" {
		t.Errorf("code = %s, want DUPLICATE_PASS", code)
	}
	if len(dispatcher.published) != 0 {
		t.Error("rejected purchase must not publish events")
	}
}

func TestPurchasePassRaceLoser(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	tickets := &stubTicketRepo{
		userHasValidPassFn: func(context.Context, string, time.Time) (bool, error) {
			// pre-check saw nothing, the transaction found the winner
			return false, nil
		},
		purchaseUnlimitedFn: func(context.Context, *domain.Ticket, time.Time) error {
			return repository.ErrDuplicatePass
		},
	}
	svc, _ := newTestTicketService(tickets, &stubUsageRepo{}, activeRouteRepo(), now)

	_, err := svc.Purchase(context.Background(), "u-1", domain.TicketTypeMonthly, "r-1")
	if code := domainErrCode(t, err); code != "DUPLICATE_PASS" {
		t.Errorf("code = %s, want DUPLICATE_PASS", code)
	}
}

func TestPurchaseRejectsInactiveRoute(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	routes := &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return nil, pgx.ErrNoRows },
	}
	svc, _ := newTestTicketService(&stubTicketRepo{}, &stubUsageRepo{}, routes, now)

	_, err := svc.Purchase(context.Background(), "u-1", domain.TicketTypeRide, "r-gone")
	if code := domainErrCode(t, err); code != "ROUTE_UNAVAILABLE" {
		t.Errorf("code = %s, want ROUTE_UNAVAILABLE", code)
	}
}

func TestPurchaseEligibility(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	held := true
	tickets := &stubTicketRepo{
		userHasValidPassFn: func(context.Context, string, time.Time) (bool, error) {
			return held, nil
		},
	}
	svc, _ := newTestTicketService(tickets, &stubUsageRepo{}, &stubRouteRepo{}, now)

	result, err := svc.PurchaseEligibility(context.Background(), "u-1", domain.TicketTypeRide)
	if err != nil || !result.Eligible {
		t.Errorf("ride purchase: result=%+v err=%v", result, err)
	}

	result, err = svc.PurchaseEligibility(context.Background(), "u-1", domain.TicketTypeMonthly)
	if err != nil || result.Eligible || result.Reason == "" {
		t.Errorf("pass while one is held: result=%+v err=%v", result, err)
	}

	held = false
	result, err = svc.PurchaseEligibility(context.Background(), "u-1", domain.TicketTypeMonthly)
	if err != nil || !result.Eligible {
		t.Errorf("pass with none held: result=%+v err=%v", result, err)
	}
}

func TestPurchaseRetriesOnNumberCollision(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	attempts := 0
	seen := map[string]bool{}
	tickets := &stubTicketRepo{
		createFn: func(_ context.Context, ticket *domain.Ticket) error {
			attempts++
			seen[ticket.TicketNumber] = true
			if attempts < 3 {
				return &pgconn.PgError{Code: "23505", ConstraintName: "tickets_ticket_number_key"}
			}
			ticket.ID = "t-1"
			return nil
		},
	}
	svc, _ := newTestTicketService(tickets, &stubUsageRepo{}, activeRouteRepo(), now)

	if _, err := svc.Purchase(context.Background(), "u-1", domain.TicketTypeRide, "r-1"); err != nil {
		t.Fatalf("Purchase returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(seen) != 3 {
		t.Errorf("expected a fresh number per attempt, saw %d distinct", len(seen))
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	valid := &domain.Ticket{
		TicketNumber: "MO-20250201000000-AAAA",
		TicketType:   domain.TicketTypeMonthly,
		Status:       domain.TicketStatusActive,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
	}
	expired := &domain.Ticket{
		TicketNumber: "RD-20250101000000-BBBB",
		TicketType:   domain.TicketTypeRide,
		Status:       domain.TicketStatusExpired,
		ValidFrom:    now.Add(-48 * time.Hour),
		ValidUntil:   now.Add(-24 * time.Hour),
	}
	tickets := &stubTicketRepo{
		getByNumberFn: func(_ context.Context, number string) (*domain.Ticket, error) {
			switch number {
			case valid.TicketNumber:
				return valid, nil
			case expired.TicketNumber:
				return expired, nil
			default:
				return nil, pgx.ErrNoRows
			}
		},
	}
	svc, _ := newTestTicketService(tickets, &stubUsageRepo{}, &stubRouteRepo{}, now)

	result, err := svc.Validate(context.Background(), valid.TicketNumber)
	if err != nil || !result.Valid {
		t.Errorf("valid ticket: result=%+v err=%v", result, err)
	}

	result, err = svc.Validate(context.Background(), expired.TicketNumber)
	if err != nil || result.Valid || result.Reason != "Ticket not valid" {
		t.Errorf("expired ticket: result=%+v err=%v", result, err)
	}

	result, err = svc.Validate(context.Background(), "RD-00000000000000-ZZZZ")
	if err != nil || result.Valid || result.Reason != "Ticket not found" {
		t.Errorf("missing ticket: result=%+v err=%v", result, err)
	}
}

func testRoute() *domain.Route {
	return &domain.Route{
		ID:            "r-1",
		RouteName:     "Blue Line",
		TransportType: domain.TransportTypeMetro,
		Stops:         []string{"Central", "Harbor"},
		Active:        true,
	}
}

func TestUseTicketConsumesRide(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ride := &domain.Ticket{
		ID:           "t-1",
		UserID:       "u-1",
		TicketNumber: "RD-20250301080000-AAAA",
		TicketType:   domain.TicketTypeRide,
		Status:       domain.TicketStatusActive,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(23 * time.Hour),
	}
	var updated *domain.Ticket
	var recorded *domain.TicketUsage
	tickets := &stubTicketRepo{
		getByNumberFn: func(context.Context, string) (*domain.Ticket, error) { return ride, nil },
		updateFn: func(_ context.Context, ticket *domain.Ticket) error {
			updated = ticket
			return nil
		},
	}
	usages := &stubUsageRepo{
		createFn: func(_ context.Context, usage *domain.TicketUsage) error {
			usage.ID = "use-1"
			recorded = usage
			return nil
		},
	}
	routes := &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return testRoute(), nil },
	}
	svc, dispatcher := newTestTicketService(tickets, usages, routes, now)

	result, err := svc.UseTicket(context.Background(), UseTicketInput{TicketNumber: ride.TicketNumber, RouteID: "r-1"})
	if err != nil {
		t.Fatalf("UseTicket returned error: %v", err)
	}
	if !result.Consumed {
		t.Error("ride use should report consumption")
	}
	if updated == nil || updated.Status != domain.TicketStatusUsed {
		t.Error("ride must be persisted as USED")
	}
	if recorded == nil {
		t.Fatal("expected a usage record")
	}
	if recorded.TicketID != "t-1" || recorded.RouteID != "r-1" {
		t.Errorf("usage record = %+v", recorded)
	}
	if recorded.TransportType != domain.TransportTypeMetro {
		t.Errorf("usage transport type = %s, want METRO", recorded.TransportType)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventTicketUsed {
		t.Errorf("expected one ticket_used event, got %v", dispatcher.published)
	}
}

func TestUseTicketPassKeepsState(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	pass := &domain.Ticket{
		ID:           "t-2",
		UserID:       "u-1",
		TicketNumber: "MO-20250201000000-AAAA",
		TicketType:   domain.TicketTypeMonthly,
		Status:       domain.TicketStatusActive,
		ValidFrom:    now.Add(-240 * time.Hour),
		ValidUntil:   now.Add(480 * time.Hour),
	}
	var usageCount int
	tickets := &stubTicketRepo{
		getByNumberFn: func(context.Context, string) (*domain.Ticket, error) { return pass, nil },
	}
	usages := &stubUsageRepo{
		createFn: func(context.Context, *domain.TicketUsage) error {
			usageCount++
			return nil
		},
	}
	routes := &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return testRoute(), nil },
	}
	svc, _ := newTestTicketService(tickets, usages, routes, now)

	for i := 0; i < 2; i++ {
		result, err := svc.UseTicket(context.Background(), UseTicketInput{TicketNumber: pass.TicketNumber, RouteID: "r-1"})
		if err != nil {
			t.Fatalf("use %d returned error: %v", i+1, err)
		}
		if result.Consumed {
			t.Error("pass use must not report consumption")
		}
	}
	if usageCount != 2 {
		t.Errorf("usage records = %d, want 2", usageCount)
	}
	if pass.Status != domain.TicketStatusActive || pass.UsedDate != nil {
		t.Error("pass state must not change on use")
	}
}

func TestUseTicketRejectsConsumedRide(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	used := now.Add(-time.Hour)
	ride := &domain.Ticket{
		ID:           "t-3",
		TicketNumber: "RD-20250301070000-AAAA",
		TicketType:   domain.TicketTypeRide,
		Status:       domain.TicketStatusUsed,
		ValidFrom:    now.Add(-2 * time.Hour),
		ValidUntil:   now.Add(22 * time.Hour),
		UsedDate:     &used,
	}
	tickets := &stubTicketRepo{
		getByNumberFn: func(context.Context, string) (*domain.Ticket, error) { return ride, nil },
	}
	routes := &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return testRoute(), nil },
	}
	// no usageRepo expectations: a rejected use must not log a ride
	svc, dispatcher := newTestTicketService(tickets, &stubUsageRepo{}, routes, now)

	_, err := svc.UseTicket(context.Background(), UseTicketInput{TicketNumber: ride.TicketNumber, RouteID: "r-1"})
	if code := domainErrCode(t, err); code != "TICKET_NOT_VALID" {
		t.Errorf("code = %s, want TICKET_NOT_VALID", code)
	}
	if len(dispatcher.published) != 0 {
		t.Error("rejected use must not publish events")
	}
}

func TestUseTicketRejectsInactiveRoute(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ride := &domain.Ticket{
		ID:           "t-4",
		TicketNumber: "RD-20250301080000-AAAA",
		TicketType:   domain.TicketTypeRide,
		Status:       domain.TicketStatusActive,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(23 * time.Hour),
	}
	tickets := &stubTicketRepo{
		getByNumberFn: func(context.Context, string) (*domain.Ticket, error) { return ride, nil },
	}
	routes := &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return nil, pgx.ErrNoRows },
	}
	svc, _ := newTestTicketService(tickets, &stubUsageRepo{}, routes, now)

	_, err := svc.UseTicket(context.Background(), UseTicketInput{TicketNumber: ride.TicketNumber, RouteID: "r-gone"})
	if code := domainErrCode(t, err); code != "ROUTE_UNAVAILABLE" {
		t.Errorf("code = %s, want ROUTE_UNAVAILABLE", code)
	}
	if ride.Status != domain.TicketStatusActive {
		t.Error("ticket must stay untouched when the route is unavailable")
	}
}

func TestUseTicketRejectsOutsideOperatingHours(t *testing.T) {
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	ride := &domain.Ticket{
		ID:           "t-5",
		TicketNumber: "RD-20250301020000-AAAA",
		TicketType:   domain.TicketTypeRide,
		Status:       domain.TicketStatusActive,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(23 * time.Hour),
	}
	dayRoute := testRoute()
	dayRoute.OperatingStartTime = "06:00"
	dayRoute.OperatingEndTime = "23:00"
	tickets := &stubTicketRepo{
		getByNumberFn: func(context.Context, string) (*domain.Ticket, error) { return ride, nil },
	}
	routes := &stubRouteRepo{
		getActiveByIDFn: func(context.Context, string) (*domain.Route, error) { return dayRoute, nil },
	}
	svc, _ := newTestTicketService(tickets, &stubUsageRepo{}, routes, now)

	_, err := svc.UseTicket(context.Background(), UseTicketInput{TicketNumber: ride.TicketNumber, RouteID: "r-1"})
	if code := domainErrCode(t, err); code != "ROUTE_UNAVAILABLE" {
		t.Errorf("code = %s, want ROUTE_UNAVAILABLE", code)
	}
}

func TestCancel(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:         "t-6",
		UserID:     "u-1",
		TicketType: domain.TicketTypeMonthly,
		Status:     domain.TicketStatusActive,
	}
	tickets := &stubTicketRepo{
		getByIDFn: func(context.Context, string) (*domain.Ticket, error) { return ticket, nil },
		updateFn:  func(context.Context, *domain.Ticket) error { return nil },
	}
	svc, dispatcher := newTestTicketService(tickets, &stubUsageRepo{}, &stubRouteRepo{}, now)

	if _, err := svc.Cancel(context.Background(), "u-2", "t-6"); err == nil {
		t.Error("cancel by a non-owner must fail")
	} else if code := domainErrCode(t, err); code != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", code)
	}

	cancelled, err := svc.Cancel(context.Background(), "u-1", "t-6")
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if cancelled.Status != domain.TicketStatusExpired {
		t.Errorf("status = %s, want EXPIRED", cancelled.Status)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventTicketCancelled {
		t.Errorf("expected one ticket_cancelled event, got %v", dispatcher.published)
	}

	if _, err := svc.Cancel(context.Background(), "u-1", "t-6"); err == nil {
		t.Error("cancelling a non-active ticket must fail")
	} else if code := domainErrCode(t, err); code != "INVALID_TRANSITION" {
		t.Errorf("code = %s, want INVALID_TRANSITION", code)
	}
}

func TestCancelAnySkipsOwnershipCheck(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:         "t-7",
		UserID:     "u-1",
		TicketType: domain.TicketTypeRide,
		Status:     domain.TicketStatusActive,
	}
	tickets := &stubTicketRepo{
		getByIDFn: func(context.Context, string) (*domain.Ticket, error) { return ticket, nil },
		updateFn:  func(context.Context, *domain.Ticket) error { return nil },
	}
	svc, dispatcher := newTestTicketService(tickets, &stubUsageRepo{}, &stubRouteRepo{}, now)

	cancelled, err := svc.CancelAny(context.Background(), "t-7")
	if err != nil {
		t.Fatalf("CancelAny returned error: %v", err)
	}
	if cancelled.Status != domain.TicketStatusExpired {
		t.Errorf("status = %s, want EXPIRED", cancelled.Status)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventTicketCancelled {
		t.Errorf("expected one ticket_cancelled event, got %v", dispatcher.published)
	}

	if _, err := svc.CancelAny(context.Background(), "t-7"); err == nil {
		t.Error("cancelling a non-active ticket must fail")
	} else if code := domainErrCode(t, err); code != "INVALID_TRANSITION" {
		t.Errorf("code = %s, want INVALID_TRANSITION", code)
	}
}

func TestProcessExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	tickets := &stubTicketRepo{
		markExpiredFn: func(_ context.Context, at time.Time) (int64, error) {
			if !at.Equal(now) {
				t.Errorf("sweep instant = %v, want %v", at, now)
			}
			return 4, nil
		},
	}
	svc, dispatcher := newTestTicketService(tickets, &stubUsageRepo{}, &stubRouteRepo{}, now)

	count, err := svc.ProcessExpired(context.Background())
	if err != nil {
		t.Fatalf("ProcessExpired returned error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventTicketsExpired {
		t.Errorf("expected one tickets_expired event, got %v", dispatcher.published)
	}

	tickets.markExpiredFn = func(context.Context, time.Time) (int64, error) { return 0, nil }
	dispatcher.published = nil
	if _, err := svc.ProcessExpired(context.Background()); err != nil {
		t.Fatalf("ProcessExpired returned error: %v", err)
	}
	if len(dispatcher.published) != 0 {
		t.Error("an empty sweep must not publish events")
	}
}
