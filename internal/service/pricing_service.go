package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/events"
	"github.com/citytransit/transit-service/internal/repository"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// PriceSource resolves the price a ticket of the given type sells for
// right now.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ticketType domain.TicketType) (decimal.Decimal, error)
}

// PricingService manages fare pricing and serves price lookups through a
// Redis read cache. Cache failures degrade to database reads.
type PricingService struct {
	pricing    repository.PricingRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PricingDependencies bundles collaborators for pricing service.
type PricingDependencies struct {
	PricingRepo repository.PricingRepository
	Cache       *redis.Client
	CacheTTL    time.Duration
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// PricingCreateInput describes a new pricing record.
type PricingCreateInput struct {
	TicketType  domain.TicketType
	Price       decimal.Decimal
	Description string
}

// PricingUpdateInput carries optional pricing changes.
type PricingUpdateInput struct {
	Price       *decimal.Decimal
	Description *string
}

// NewPricingService constructs the service.
func NewPricingService(deps PricingDependencies) *PricingService {
	return &PricingService{
		pricing:    deps.PricingRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

func priceCacheKey(ticketType domain.TicketType) string {
	return fmt.Sprintf("pricing:current:%s", ticketType)
}

// CurrentPrice returns the active price for a ticket type, consulting the
// cache first.
func (s *PricingService) CurrentPrice(ctx context.Context, ticketType domain.TicketType) (decimal.Decimal, error) {
	if !domain.ValidTicketType(ticketType) {
		return decimal.Zero, apperrors.NewValidationError("unknown ticket type", map[string]any{"ticket_type": ticketType})
	}
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, priceCacheKey(ticketType)).Result(); err == nil {
			if price, perr := decimal.NewFromString(cached); perr == nil {
				return price, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("price cache read failed", zap.Error(err))
		}
	}

	record, err := s.pricing.GetActiveByType(ctx, ticketType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperrors.NewNotFound("pricing", map[string]any{"ticket_type": ticketType})
		}
		return decimal.Zero, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, priceCacheKey(ticketType), record.Price.String(), s.cacheTTL).Err(); err != nil {
			s.logger.Warn("price cache write failed", zap.Error(err))
		}
	}
	return record.Price, nil
}

// ListActive returns the current price list.
func (s *PricingService) ListActive(ctx context.Context) ([]domain.TicketPricing, error) {
	return s.pricing.ListActive(ctx)
}

// GetActiveByType returns the active pricing record for a type.
func (s *PricingService) GetActiveByType(ctx context.Context, ticketType domain.TicketType) (*domain.TicketPricing, error) {
	if !domain.ValidTicketType(ticketType) {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"ticket_type": ticketType})
	}
	return s.pricing.GetActiveByType(ctx, ticketType)
}

// History returns pricing records for a type, newest first.
func (s *PricingService) History(ctx context.Context, ticketType domain.TicketType) ([]domain.TicketPricing, error) {
	if !domain.ValidTicketType(ticketType) {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"ticket_type": ticketType})
	}
	return s.pricing.HistoryByType(ctx, ticketType)
}

// ListAll returns every pricing record including replaced ones.
func (s *PricingService) ListAll(ctx context.Context) ([]domain.TicketPricing, error) {
	return s.pricing.ListAll(ctx)
}

// SetPrice replaces the active price for a ticket type. The previous
// active record, if any, is kept as inactive history.
func (s *PricingService) SetPrice(ctx context.Context, input PricingCreateInput) (*domain.TicketPricing, error) {
	if !domain.ValidTicketType(input.TicketType) {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"ticket_type": input.TicketType})
	}
	if !domain.ValidPrice(input.Price) {
		return nil, apperrors.NewValidationError("price must be positive", map[string]any{"price": input.Price})
	}

	current, err := s.pricing.GetActiveByType(ctx, input.TicketType)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if current != nil {
		current.Active = false
		if err := s.pricing.Update(ctx, current); err != nil {
			return nil, err
		}
	}

	record := &domain.TicketPricing{
		TicketType:  input.TicketType,
		Price:       input.Price,
		Description: strings.TrimSpace(input.Description),
		Active:      true,
	}
	if err := s.pricing.Create(ctx, record); err != nil {
		return nil, err
	}

	s.invalidate(ctx, input.TicketType)
	s.publishPricingUpdated(ctx, record)
	return record, nil
}

// UpdatePricing edits the active pricing record in place.
func (s *PricingService) UpdatePricing(ctx context.Context, ticketType domain.TicketType, input PricingUpdateInput) (*domain.TicketPricing, error) {
	record, err := s.GetActiveByType(ctx, ticketType)
	if err != nil {
		return nil, err
	}
	if input.Price != nil {
		if !domain.ValidPrice(*input.Price) {
			return nil, apperrors.NewValidationError("price must be positive", map[string]any{"price": *input.Price})
		}
		record.Price = *input.Price
	}
	if input.Description != nil {
		record.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.pricing.Update(ctx, record); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ticketType)
	s.publishPricingUpdated(ctx, record)
	return record, nil
}

func (s *PricingService) invalidate(ctx context.Context, ticketType domain.TicketType) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, priceCacheKey(ticketType)).Err(); err != nil {
		s.logger.Warn("price cache invalidation failed", zap.Error(err))
	}
}

func (s *PricingService) publishPricingUpdated(ctx context.Context, record *domain.TicketPricing) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPricingUpdated,
		Timestamp: time.Now().UTC(),
		Payload: events.PricingUpdatedPayload{
			PricingID:  record.ID,
			TicketType: record.TicketType,
			Price:      record.Price,
			Active:     record.Active,
		},
	})
}
