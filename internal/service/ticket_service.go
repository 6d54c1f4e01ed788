package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/events"
	"github.com/citytransit/transit-service/internal/repository"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// ticketNumberAttempts bounds retries when a generated ticket number
// collides with an existing one.
const ticketNumberAttempts = 3

// TicketService coordinates purchase, validation and use of tickets.
type TicketService struct {
	tickets    repository.TicketRepository
	usages     repository.UsageRepository
	routes     repository.RouteRepository
	prices     PriceSource
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UsageRepo  repository.UsageRepository
	RouteRepo  repository.RouteRepository
	Prices     PriceSource
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// UseTicketInput describes one use attempt at a gate or on a vehicle.
type UseTicketInput struct {
	TicketNumber    string
	RouteID         string
	BoardingStop    *string
	DestinationStop *string
}

// ValidationResult is the outcome of a ticket validation check. Lookup
// misses are reported through Valid and Reason rather than errors.
type ValidationResult struct {
	Valid  bool
	Reason string
	Ticket *domain.Ticket
}

// UseResult reports what a successful use attempt did.
type UseResult struct {
	Ticket   *domain.Ticket
	Usage    *domain.TicketUsage
	Consumed bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		usages:     deps.UsageRepo,
		routes:     deps.RouteRepo,
		prices:     deps.Prices,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// generateTicketNumber builds a number like RD-20250114093045-7F3A. The
// suffix comes from a fresh UUID, so collisions are rare; the database
// unique constraint catches the rest.
func generateTicketNumber(ticketType domain.TicketType, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:4]
	return fmt.Sprintf("%s-%s-%s", ticketType.NumberPrefix(), now.Format("20060102150405"), suffix)
}

// Purchase sells a ticket of the given type to the user at the currently
// active price. The purchase is tied to an active route at the point of
// sale; unlimited passes are rejected while the user already holds a valid
// one.
func (s *TicketService) Purchase(ctx context.Context, userID string, ticketType domain.TicketType, routeID string) (*domain.Ticket, error) {
	if !domain.ValidTicketType(ticketType) {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"ticket_type": ticketType})
	}
	if _, err := s.routes.GetActiveByID(ctx, routeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewRouteUnavailable()
		}
		return nil, err
	}

	now := s.now().UTC()
	if ticketType.IsUnlimited() {
		held, err := s.tickets.UserHasValidPass(ctx, userID, now)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, apperrors.NewDuplicatePass()
		}
	}

	price, err := s.prices.CurrentPrice(ctx, ticketType)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		UserID:       userID,
		TicketType:   ticketType,
		Price:        price,
		Status:       domain.TicketStatusActive,
		PurchaseDate: now,
		ValidFrom:    now,
		ValidUntil:   now.Add(ticketType.ValidityWindow()),
	}

	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		ticket.TicketNumber = generateTicketNumber(ticketType, now)
		if ticketType.IsUnlimited() {
			err = s.tickets.PurchaseUnlimited(ctx, ticket, now)
		} else {
			err = s.tickets.Create(ctx, ticket)
		}
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicatePass) {
			return nil, apperrors.NewDuplicatePass()
		}
		if !repository.IsUniqueViolation(err, "tickets_ticket_number_key") {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.EventTicketPurchased,
		Payload: events.TicketPurchasedPayload{
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			UserID:       ticket.UserID,
			TicketType:   ticket.TicketType,
			Price:        ticket.Price,
			ValidFrom:    ticket.ValidFrom,
			ValidUntil:   ticket.ValidUntil,
		},
	})
	return ticket, nil
}

// Validate checks whether the numbered ticket could currently be used.
// Missing and ineligible tickets both come back as invalid results, not
// errors.
func (s *TicketService) Validate(ctx context.Context, ticketNumber string) (*ValidationResult, error) {
	ticket, err := s.tickets.GetByNumber(ctx, strings.TrimSpace(ticketNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ValidationResult{Valid: false, Reason: "Ticket not found"}, nil
		}
		return nil, err
	}
	if !ticket.IsCurrentlyValid(s.now().UTC()) {
		return &ValidationResult{Valid: false, Reason: "Ticket not valid", Ticket: ticket}, nil
	}
	return &ValidationResult{Valid: true, Ticket: ticket}, nil
}

// UseTicket records a ride on a route. Single rides are consumed; passes
// stay active and only log the use. Ineligible tickets are rejected
// explicitly, never silently ignored.
func (s *TicketService) UseTicket(ctx context.Context, input UseTicketInput) (*UseResult, error) {
	ticket, err := s.tickets.GetByNumber(ctx, strings.TrimSpace(input.TicketNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": input.TicketNumber})
		}
		return nil, err
	}

	route, err := s.routes.GetActiveByID(ctx, input.RouteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewRouteUnavailable()
		}
		return nil, err
	}

	now := s.now().UTC()
	if !route.OperatingAt(now) {
		return nil, apperrors.NewRouteUnavailable()
	}
	if !ticket.CanBeUsedForTransit(now) {
		return nil, apperrors.NewTicketNotValid(useRejectionReason(ticket, now))
	}

	consumed := ticket.Use(now)
	if consumed {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	}

	usage := &domain.TicketUsage{
		TicketID:        ticket.ID,
		RouteID:         route.ID,
		TransportType:   route.TransportType,
		BoardingStop:    trimStop(input.BoardingStop),
		DestinationStop: trimStop(input.DestinationStop),
		UsedAt:          now,
	}
	if err := s.usages.Create(ctx, usage); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.EventTicketUsed,
		Payload: events.TicketUsedPayload{
			TicketID:      ticket.ID,
			TicketNumber:  ticket.TicketNumber,
			UserID:        ticket.UserID,
			TicketType:    ticket.TicketType,
			RouteID:       route.ID,
			TransportType: route.TransportType,
			Consumed:      consumed,
		},
	})
	return &UseResult{Ticket: ticket, Usage: usage, Consumed: consumed}, nil
}

func useRejectionReason(ticket *domain.Ticket, now time.Time) string {
	switch {
	case ticket.Status == domain.TicketStatusUsed:
		return "ticket already used"
	case ticket.Status == domain.TicketStatusExpired:
		return "ticket expired"
	case ticket.TicketType == domain.TicketTypeRide && ticket.UsedDate != nil:
		return "ticket already used"
	case !now.After(ticket.ValidFrom):
		return "ticket not yet valid"
	case !now.Before(ticket.ValidUntil):
		return "ticket validity window elapsed"
	default:
		return "ticket not valid"
	}
}

// EligibilityResult reports whether a purchase would currently be accepted.
type EligibilityResult struct {
	Eligible bool
	Reason   string
}

// PurchaseEligibility checks whether the user may buy the given ticket type
// right now. Only unlimited passes carry a purchase constraint.
func (s *TicketService) PurchaseEligibility(ctx context.Context, userID string, ticketType domain.TicketType) (*EligibilityResult, error) {
	if !domain.ValidTicketType(ticketType) {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"ticket_type": ticketType})
	}
	if !ticketType.IsUnlimited() {
		return &EligibilityResult{Eligible: true}, nil
	}
	held, err := s.tickets.UserHasValidPass(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if held {
		return &EligibilityResult{Eligible: false, Reason: "user already holds a valid unlimited pass"}, nil
	}
	return &EligibilityResult{Eligible: true}, nil
}

// Cancel retires an active ticket before its window elapses. Only the
// owner may cancel, and only from ACTIVE.
func (s *TicketService) Cancel(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	return s.cancel(ctx, ticket)
}

// CancelAny retires any user's active ticket, for admins.
func (s *TicketService) CancelAny(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, ticket)
}

func (s *TicketService) cancel(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if ticket.Status != domain.TicketStatusActive {
		return nil, apperrors.NewInvalidTransition(fmt.Sprintf("cannot cancel a %s ticket", strings.ToLower(string(ticket.Status))))
	}
	ticket.Status = domain.TicketStatusExpired
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type: events.EventTicketCancelled,
		Payload: events.TicketCancelledPayload{
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			UserID:       ticket.UserID,
			TicketType:   ticket.TicketType,
		},
	})
	return ticket, nil
}

// GetTicketForUser fetches a ticket ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	return ticket, nil
}

// ListUserTickets returns the user's tickets, newest purchase first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, int64, error) {
	return s.tickets.ListByUser(ctx, userID, limit, offset)
}

// ListUserValidTickets returns currently valid tickets for a user.
func (s *TicketService) ListUserValidTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return s.tickets.ListUserValid(ctx, userID, s.now().UTC())
}

// ListUserValidRides returns unspent single rides for a user.
func (s *TicketService) ListUserValidRides(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return s.tickets.ListUserValidRides(ctx, userID, s.now().UTC())
}

// ListUserValidPasses returns valid unlimited passes for a user.
func (s *TicketService) ListUserValidPasses(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return s.tickets.ListUserValidPasses(ctx, userID, s.now().UTC())
}

// ListUsages returns the usage log for one of the user's tickets.
func (s *TicketService) ListUsages(ctx context.Context, userID, ticketID string) ([]domain.TicketUsage, error) {
	if _, err := s.GetTicketForUser(ctx, userID, ticketID); err != nil {
		return nil, err
	}
	return s.usages.ListByTicket(ctx, ticketID)
}

// ListUserUsages returns the user's ride history across all tickets.
func (s *TicketService) ListUserUsages(ctx context.Context, userID string, limit, offset int) ([]domain.TicketUsage, int64, error) {
	return s.usages.ListByUser(ctx, userID, limit, offset)
}

// ListTickets returns a filtered ticket page, for admins.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// GetTicket returns any ticket by id, for admins.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// DeleteUsage removes a usage record, for admins correcting mistaken
// validations.
func (s *TicketService) DeleteUsage(ctx context.Context, usageID string) error {
	return s.usages.Delete(ctx, usageID)
}

// ProcessExpired flips elapsed ACTIVE tickets to EXPIRED and reports how
// many changed.
func (s *TicketService) ProcessExpired(ctx context.Context) (int64, error) {
	count, err := s.tickets.MarkExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired tickets swept", zap.Int64("count", count))
		s.publish(ctx, events.Event{
			Type:    events.EventTicketsExpired,
			Payload: events.TicketsExpiredPayload{Count: count},
		})
	}
	return count, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

func trimStop(stop *string) *string {
	if stop == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*stop)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
