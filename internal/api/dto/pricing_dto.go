package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/citytransit/transit-service/internal/domain"
)

// SetPriceRequest payload for replacing the active price of a type.
type SetPriceRequest struct {
	TicketType  domain.TicketType `json:"ticket_type"`
	Price       decimal.Decimal   `json:"price"`
	Description string            `json:"description"`
}

// UpdatePricingRequest payload for editing the active record in place.
type UpdatePricingRequest struct {
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
}

// PricingResponse is the public pricing shape.
type PricingResponse struct {
	ID          string            `json:"id"`
	TicketType  domain.TicketType `json:"ticket_type"`
	Price       decimal.Decimal   `json:"price"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewPricingResponse maps a domain pricing record.
func NewPricingResponse(pricing *domain.TicketPricing) PricingResponse {
	return PricingResponse{
		ID:          pricing.ID,
		TicketType:  pricing.TicketType,
		Price:       pricing.Price,
		Description: pricing.Description,
		Active:      pricing.Active,
		CreatedAt:   pricing.CreatedAt,
		UpdatedAt:   pricing.UpdatedAt,
	}
}

// NewPricingResponses maps a pricing slice.
func NewPricingResponses(records []domain.TicketPricing) []PricingResponse {
	out := make([]PricingResponse, 0, len(records))
	for i := range records {
		out = append(out, NewPricingResponse(&records[i]))
	}
	return out
}
