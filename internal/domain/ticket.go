package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketType enumerates the purchasable fare products.
type TicketType string

const (
	TicketTypeRide    TicketType = "RIDE"
	TicketTypeMonthly TicketType = "MONTHLY"
	TicketTypeYearly  TicketType = "YEARLY"
)

// ValidTicketType reports whether the value is a known ticket type.
func ValidTicketType(t TicketType) bool {
	switch t {
	case TicketTypeRide, TicketTypeMonthly, TicketTypeYearly:
		return true
	}
	return false
}

// ValidityWindow returns how long a ticket of this type stays valid after
// purchase: 24h for single rides, 30 days for monthly, 365 for yearly.
func (t TicketType) ValidityWindow() time.Duration {
	switch t {
	case TicketTypeMonthly:
		return 30 * 24 * time.Hour
	case TicketTypeYearly:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// IsUnlimited reports whether the type permits unlimited rides within its
// validity window.
func (t TicketType) IsUnlimited() bool {
	return t == TicketTypeMonthly || t == TicketTypeYearly
}

// NumberPrefix returns the ticket-number prefix for the type.
func (t TicketType) NumberPrefix() string {
	switch t {
	case TicketTypeRide:
		return "RD"
	case TicketTypeMonthly:
		return "MO"
	case TicketTypeYearly:
		return "YR"
	default:
		return "TK"
	}
}

// TicketStatus enumerates ticket lifecycle states. USED and EXPIRED are
// terminal.
type TicketStatus string

const (
	TicketStatusActive  TicketStatus = "ACTIVE"
	TicketStatusUsed    TicketStatus = "USED"
	TicketStatusExpired TicketStatus = "EXPIRED"
)

// Ticket is a purchased fare product owned by one user. Price is a snapshot
// of the pricing at purchase time and never changes afterwards.
type Ticket struct {
	ID           string
	UserID       string
	TicketNumber string
	TicketType   TicketType
	Price        decimal.Decimal
	Status       TicketStatus
	PurchaseDate time.Time
	ValidFrom    time.Time
	ValidUntil   time.Time
	UsedDate     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsCurrentlyValid reports whether the ticket is usable at the given
// instant. The validity window is strictly open on both ends: a ticket is
// not valid at exactly ValidFrom or ValidUntil.
func (t *Ticket) IsCurrentlyValid(now time.Time) bool {
	return t.Status == TicketStatusActive &&
		now.After(t.ValidFrom) &&
		now.Before(t.ValidUntil) &&
		(t.TicketType != TicketTypeRide || t.UsedDate == nil)
}

// CanBeUsedForTransit reports whether a use attempt at the given instant
// should be honored. Single rides are consumed once; unlimited passes allow
// any number of rides within their window.
func (t *Ticket) CanBeUsedForTransit(now time.Time) bool {
	if t.TicketType == TicketTypeRide {
		return t.IsCurrentlyValid(now) && t.UsedDate == nil
	}
	return t.IsCurrentlyValid(now)
}

// Use consumes the ticket for a ride at the given instant and reports
// whether any state changed. Only an eligible RIDE ticket transitions
// (UsedDate set, status USED); unlimited passes never change state on use.
func (t *Ticket) Use(now time.Time) bool {
	if t.TicketType != TicketTypeRide || !t.CanBeUsedForTransit(now) {
		return false
	}
	used := now
	t.UsedDate = &used
	t.Status = TicketStatusUsed
	return true
}
