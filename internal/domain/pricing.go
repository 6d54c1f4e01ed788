package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketPricing is a price record for one ticket type. At most one record
// per type is active and canonical for current-price lookups; inactive rows
// form the price history.
type TicketPricing struct {
	ID          string
	TicketType  TicketType
	Price       decimal.Decimal
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidPrice reports whether a price is acceptable for a pricing record.
func ValidPrice(price decimal.Decimal) bool {
	return price.IsPositive()
}
