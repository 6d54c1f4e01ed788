package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/citytransit/transit-service/internal/domain"
)

// PurchaseTicketRequest payload.
type PurchaseTicketRequest struct {
	TicketType domain.TicketType `json:"ticket_type"`
	RouteID    string            `json:"route_id"`
}

// ValidateTicketRequest payload.
type ValidateTicketRequest struct {
	TicketNumber string `json:"ticket_number"`
}

// UseTicketRequest payload.
type UseTicketRequest struct {
	TicketNumber    string  `json:"ticket_number"`
	RouteID         string  `json:"route_id"`
	BoardingStop    *string `json:"boarding_stop"`
	DestinationStop *string `json:"destination_stop"`
}

// TicketResponse is the public ticket shape.
type TicketResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	TicketNumber string              `json:"ticket_number"`
	TicketType   domain.TicketType   `json:"ticket_type"`
	Price        decimal.Decimal     `json:"price"`
	Status       domain.TicketStatus `json:"status"`
	PurchaseDate time.Time           `json:"purchase_date"`
	ValidFrom    time.Time           `json:"valid_from"`
	ValidUntil   time.Time           `json:"valid_until"`
	UsedDate     *time.Time          `json:"used_date"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ValidationResponse reports a validation outcome.
type ValidationResponse struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason,omitempty"`
	Ticket *TicketResponse `json:"ticket,omitempty"`
}

// UseTicketResponse reports what a use attempt did.
type UseTicketResponse struct {
	Ticket   TicketResponse `json:"ticket"`
	Usage    UsageResponse  `json:"usage"`
	Consumed bool           `json:"consumed"`
}

// EligibilityResponse reports whether a purchase would be accepted.
type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// UsageResponse is one ride record.
type UsageResponse struct {
	ID              string               `json:"id"`
	TicketID        string               `json:"ticket_id"`
	RouteID         string               `json:"route_id"`
	TransportType   domain.TransportType `json:"transport_type"`
	BoardingStop    *string              `json:"boarding_stop"`
	DestinationStop *string              `json:"destination_stop"`
	UsedAt          time.Time            `json:"used_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		UserID:       ticket.UserID,
		TicketNumber: ticket.TicketNumber,
		TicketType:   ticket.TicketType,
		Price:        ticket.Price,
		Status:       ticket.Status,
		PurchaseDate: ticket.PurchaseDate,
		ValidFrom:    ticket.ValidFrom,
		ValidUntil:   ticket.ValidUntil,
		UsedDate:     ticket.UsedDate,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a ticket slice.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewUsageResponse maps a domain usage record.
func NewUsageResponse(usage *domain.TicketUsage) UsageResponse {
	return UsageResponse{
		ID:              usage.ID,
		TicketID:        usage.TicketID,
		RouteID:         usage.RouteID,
		TransportType:   usage.TransportType,
		BoardingStop:    usage.BoardingStop,
		DestinationStop: usage.DestinationStop,
		UsedAt:          usage.UsedAt,
	}
}

// NewUsageResponses maps a usage slice.
func NewUsageResponses(usages []domain.TicketUsage) []UsageResponse {
	out := make([]UsageResponse, 0, len(usages))
	for i := range usages {
		out = append(out, NewUsageResponse(&usages[i]))
	}
	return out
}
