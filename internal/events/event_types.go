package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/citytransit/transit-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketPurchased EventType = "ticket_purchased"
	EventTicketUsed      EventType = "ticket_used"
	EventTicketCancelled EventType = "ticket_cancelled"
	EventTicketsExpired  EventType = "tickets_expired"
	EventPricingUpdated  EventType = "pricing_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketPurchasedPayload payload.
type TicketPurchasedPayload struct {
	TicketID     string            `json:"ticket_id"`
	TicketNumber string            `json:"ticket_number"`
	UserID       string            `json:"user_id"`
	TicketType   domain.TicketType `json:"ticket_type"`
	Price        decimal.Decimal   `json:"price"`
	ValidFrom    time.Time         `json:"valid_from"`
	ValidUntil   time.Time         `json:"valid_until"`
}

// TicketUsedPayload payload.
type TicketUsedPayload struct {
	TicketID      string               `json:"ticket_id"`
	TicketNumber  string               `json:"ticket_number"`
	UserID        string               `json:"user_id"`
	TicketType    domain.TicketType    `json:"ticket_type"`
	RouteID       string               `json:"route_id"`
	TransportType domain.TransportType `json:"transport_type"`
	Consumed      bool                 `json:"consumed"`
}

// TicketCancelledPayload payload.
type TicketCancelledPayload struct {
	TicketID     string            `json:"ticket_id"`
	TicketNumber string            `json:"ticket_number"`
	UserID       string            `json:"user_id"`
	TicketType   domain.TicketType `json:"ticket_type"`
}

// TicketsExpiredPayload payload.
type TicketsExpiredPayload struct {
	Count int64 `json:"count"`
}

// PricingUpdatedPayload payload.
type PricingUpdatedPayload struct {
	PricingID  string            `json:"pricing_id"`
	TicketType domain.TicketType `json:"ticket_type"`
	Price      decimal.Decimal   `json:"price"`
	Active     bool              `json:"active"`
}
