package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/events"
)

type stubPricingRepo struct {
	createFn          func(ctx context.Context, pricing *domain.TicketPricing) error
	updateFn          func(ctx context.Context, pricing *domain.TicketPricing) error
	getActiveByTypeFn func(ctx context.Context, ticketType domain.TicketType) (*domain.TicketPricing, error)
}

func (s *stubPricingRepo) Create(ctx context.Context, pricing *domain.TicketPricing) error {
	if s.createFn == nil {
		panic("unexpected pricing Create call")
	}
	return s.createFn(ctx, pricing)
}

func (s *stubPricingRepo) Update(ctx context.Context, pricing *domain.TicketPricing) error {
	if s.updateFn == nil {
		panic("unexpected pricing Update call")
	}
	return s.updateFn(ctx, pricing)
}

func (s *stubPricingRepo) GetActiveByType(ctx context.Context, ticketType domain.TicketType) (*domain.TicketPricing, error) {
	if s.getActiveByTypeFn == nil {
		panic("unexpected GetActiveByType call")
	}
	return s.getActiveByTypeFn(ctx, ticketType)
}

func (s *stubPricingRepo) ListActive(context.Context) ([]domain.TicketPricing, error) {
	panic("unexpected pricing ListActive call")
}

func (s *stubPricingRepo) ListAll(context.Context) ([]domain.TicketPricing, error) {
	panic("unexpected pricing ListAll call")
}

func (s *stubPricingRepo) HistoryByType(context.Context, domain.TicketType) ([]domain.TicketPricing, error) {
	panic("unexpected HistoryByType call")
}

func newTestPricingService(repo *stubPricingRepo) (*PricingService, *captureDispatcher) {
	dispatcher := &captureDispatcher{}
	svc := NewPricingService(PricingDependencies{
		PricingRepo: repo,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
	return svc, dispatcher
}

func TestCurrentPriceFallsBackToDatabase(t *testing.T) {
	repo := &stubPricingRepo{
		getActiveByTypeFn: func(_ context.Context, ticketType domain.TicketType) (*domain.TicketPricing, error) {
			if ticketType != domain.TicketTypeRide {
				return nil, pgx.ErrNoRows
			}
			return &domain.TicketPricing{
				TicketType: domain.TicketTypeRide,
				Price:      decimal.RequireFromString("2.50"),
				Active:     true,
			}, nil
		},
	}
	svc, _ := newTestPricingService(repo)

	price, err := svc.CurrentPrice(context.Background(), domain.TicketTypeRide)
	if err != nil {
		t.Fatalf("CurrentPrice returned error: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("price = %s, want 2.50", price)
	}

	_, err = svc.CurrentPrice(context.Background(), domain.TicketTypeMonthly)
	if code := domainErrCode(t, err); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}

	_, err = svc.CurrentPrice(context.Background(), domain.TicketType("WEEKLY"))
	if code := domainErrCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestSetPriceRetiresPreviousRecord(t *testing.T) {
	previous := &domain.TicketPricing{
		ID:         "p-1",
		TicketType: domain.TicketTypeRide,
		Price:      decimal.RequireFromString("2.00"),
		Active:     true,
	}
	var created *domain.TicketPricing
	repo := &stubPricingRepo{
		getActiveByTypeFn: func(context.Context, domain.TicketType) (*domain.TicketPricing, error) {
			return previous, nil
		},
		updateFn: func(_ context.Context, pricing *domain.TicketPricing) error {
			if pricing.ID != "p-1" || pricing.Active {
				t.Errorf("expected previous record deactivated, got %+v", pricing)
			}
			return nil
		},
		createFn: func(_ context.Context, pricing *domain.TicketPricing) error {
			pricing.ID = "p-2"
			created = pricing
			return nil
		},
	}
	svc, dispatcher := newTestPricingService(repo)

	record, err := svc.SetPrice(context.Background(), PricingCreateInput{
		TicketType:  domain.TicketTypeRide,
		Price:       decimal.RequireFromString("2.75"),
		Description: "  spring fare change  ",
	})
	if err != nil {
		t.Fatalf("SetPrice returned error: %v", err)
	}
	if created == nil || !record.Active || !record.Price.Equal(decimal.RequireFromString("2.75")) {
		t.Errorf("new record = %+v", record)
	}
	if record.Description != "spring fare change" {
		t.Errorf("description = %q, want it trimmed", record.Description)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventPricingUpdated {
		t.Errorf("expected one pricing_updated event, got %v", dispatcher.published)
	}
}

func TestSetPriceFirstRecordForType(t *testing.T) {
	repo := &stubPricingRepo{
		getActiveByTypeFn: func(context.Context, domain.TicketType) (*domain.TicketPricing, error) {
			return nil, pgx.ErrNoRows
		},
		createFn: func(_ context.Context, pricing *domain.TicketPricing) error {
			pricing.ID = "p-1"
			return nil
		},
	}
	svc, _ := newTestPricingService(repo)

	record, err := svc.SetPrice(context.Background(), PricingCreateInput{
		TicketType: domain.TicketTypeYearly,
		Price:      decimal.RequireFromString("800.00"),
	})
	if err != nil {
		t.Fatalf("SetPrice returned error: %v", err)
	}
	if record.ID != "p-1" || !record.Active {
		t.Errorf("record = %+v", record)
	}
}

func TestSetPriceRejectsNonPositivePrice(t *testing.T) {
	svc, dispatcher := newTestPricingService(&stubPricingRepo{})

	_, err := svc.SetPrice(context.Background(), PricingCreateInput{
		TicketType: domain.TicketTypeRide,
		Price:      decimal.Zero,
	})
	if code := domainErrCode(t, err); code != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", code)
	}
	if len(dispatcher.published) != 0 {
		t.Error("rejected price change must not publish events")
	}
}

func TestUpdatePricingEditsActiveRecord(t *testing.T) {
	active := &domain.TicketPricing{
		ID:         "p-1",
		TicketType: domain.TicketTypeMonthly,
		Price:      decimal.RequireFromString("75.00"),
		Active:     true,
	}
	var updated *domain.TicketPricing
	repo := &stubPricingRepo{
		getActiveByTypeFn: func(context.Context, domain.TicketType) (*domain.TicketPricing, error) {
			return active, nil
		},
		updateFn: func(_ context.Context, pricing *domain.TicketPricing) error {
			updated = pricing
			return nil
		},
	}
	svc, _ := newTestPricingService(repo)

	newPrice := decimal.RequireFromString("79.00")
	record, err := svc.UpdatePricing(context.Background(), domain.TicketTypeMonthly, PricingUpdateInput{Price: &newPrice})
	if err != nil {
		t.Fatalf("UpdatePricing returned error: %v", err)
	}
	if updated == nil || !record.Price.Equal(newPrice) || record.ID != "p-1" {
		t.Errorf("record = %+v", record)
	}
}
