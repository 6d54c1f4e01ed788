package domain

import (
	"testing"
	"time"
)

func activeTicket(ticketType TicketType, validFrom time.Time) *Ticket {
	return &Ticket{
		ID:           "t-1",
		UserID:       "u-1",
		TicketNumber: "RD-20250101000000-AAAA",
		TicketType:   ticketType,
		Status:       TicketStatusActive,
		PurchaseDate: validFrom,
		ValidFrom:    validFrom,
		ValidUntil:   validFrom.Add(ticketType.ValidityWindow()),
	}
}

func TestIsCurrentlyValidWindowBounds(t *testing.T) {
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	ticket := activeTicket(TicketTypeRide, start)

	if ticket.IsCurrentlyValid(start) {
		t.Error("ticket must not be valid at exactly ValidFrom")
	}
	if ticket.IsCurrentlyValid(ticket.ValidUntil) {
		t.Error("ticket must not be valid at exactly ValidUntil")
	}
	if ticket.IsCurrentlyValid(start.Add(-time.Minute)) {
		t.Error("ticket must not be valid before its window")
	}
	if ticket.IsCurrentlyValid(ticket.ValidUntil.Add(time.Minute)) {
		t.Error("ticket must not be valid after its window")
	}
	if !ticket.IsCurrentlyValid(start.Add(12 * time.Hour)) {
		t.Error("ticket should be valid in the middle of its window")
	}
}

func TestIsCurrentlyValidStatus(t *testing.T) {
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	for _, status := range []TicketStatus{TicketStatusUsed, TicketStatusExpired} {
		ticket := activeTicket(TicketTypeMonthly, start)
		ticket.Status = status
		if ticket.IsCurrentlyValid(now) {
			t.Errorf("%s ticket must not be valid", status)
		}
	}
}

func TestIsCurrentlyValidUsedDate(t *testing.T) {
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)
	used := start.Add(30 * time.Minute)

	ride := activeTicket(TicketTypeRide, start)
	ride.UsedDate = &used
	if ride.IsCurrentlyValid(now) {
		t.Error("ride with a recorded use must not be valid, even while ACTIVE")
	}

	pass := activeTicket(TicketTypeMonthly, start)
	pass.UsedDate = &used
	if !pass.IsCurrentlyValid(now) {
		t.Error("a recorded use must not invalidate an unlimited pass")
	}
}

func TestRideTicketSingleUse(t *testing.T) {
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	ticket := activeTicket(TicketTypeRide, start)
	now := start.Add(time.Hour)

	if !ticket.CanBeUsedForTransit(now) {
		t.Fatal("fresh ride should be usable")
	}
	if !ticket.Use(now) {
		t.Fatal("first use should consume the ride")
	}
	if ticket.Status != TicketStatusUsed {
		t.Errorf("status = %s, want %s", ticket.Status, TicketStatusUsed)
	}
	if ticket.UsedDate == nil || !ticket.UsedDate.Equal(now) {
		t.Errorf("UsedDate = %v, want %v", ticket.UsedDate, now)
	}

	later := now.Add(time.Minute)
	if ticket.CanBeUsedForTransit(later) {
		t.Error("consumed ride must not be usable again")
	}
	if ticket.Use(later) {
		t.Error("second use must not change state")
	}
	if !ticket.UsedDate.Equal(now) {
		t.Error("UsedDate must keep the first use instant")
	}
}

func TestUnlimitedPassAllowsRepeatedUse(t *testing.T) {
	start := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	for _, ticketType := range []TicketType{TicketTypeMonthly, TicketTypeYearly} {
		ticket := activeTicket(ticketType, start)
		now := start.Add(time.Hour)

		for i := 0; i < 3; i++ {
			if !ticket.CanBeUsedForTransit(now) {
				t.Fatalf("%s pass should be usable on attempt %d", ticketType, i+1)
			}
			if ticket.Use(now) {
				t.Fatalf("%s pass must never be consumed by use", ticketType)
			}
			now = now.Add(time.Hour)
		}
		if ticket.Status != TicketStatusActive {
			t.Errorf("%s pass status = %s, want ACTIVE", ticketType, ticket.Status)
		}
		if ticket.UsedDate != nil {
			t.Errorf("%s pass UsedDate must stay nil", ticketType)
		}
	}
}

func TestValidityWindows(t *testing.T) {
	cases := []struct {
		ticketType TicketType
		want       time.Duration
	}{
		{TicketTypeRide, 24 * time.Hour},
		{TicketTypeMonthly, 30 * 24 * time.Hour},
		{TicketTypeYearly, 365 * 24 * time.Hour},
	}
	for _, tc := range cases {
		if got := tc.ticketType.ValidityWindow(); got != tc.want {
			t.Errorf("%s window = %v, want %v", tc.ticketType, got, tc.want)
		}
	}
}

func TestNumberPrefix(t *testing.T) {
	cases := map[TicketType]string{
		TicketTypeRide:    "RD",
		TicketTypeMonthly: "MO",
		TicketTypeYearly:  "YR",
	}
	for ticketType, want := range cases {
		if got := ticketType.NumberPrefix(); got != want {
			t.Errorf("%s prefix = %s, want %s", ticketType, got, want)
		}
	}
}
