package domain

import "time"

// TicketUsage is an append-only record of one transit use, associating a
// ticket with the route it was used on. Rows are never mutated; admin
// deletion exists only as an escape hatch.
type TicketUsage struct {
	ID              string
	TicketID        string
	RouteID         string
	TransportType   TransportType
	BoardingStop    *string
	DestinationStop *string
	UsedAt          time.Time
}
