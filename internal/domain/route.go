package domain

import (
	"strings"
	"time"
)

// TransportType enumerates the transit modes a route can serve.
type TransportType string

const (
	TransportTypeBus   TransportType = "BUS"
	TransportTypeMetro TransportType = "METRO"
	TransportTypeTram  TransportType = "TRAM"
	TransportTypeTrain TransportType = "TRAIN"
)

// ValidTransportType reports whether the value is a known transport type.
func ValidTransportType(t TransportType) bool {
	switch t {
	case TransportTypeBus, TransportTypeMetro, TransportTypeTram, TransportTypeTrain:
		return true
	}
	return false
}

// Route is a transit line with an ordered list of stops.
type Route struct {
	ID                 string
	RouteName          string
	Description        string
	TransportType      TransportType
	Stops              []string
	OperatingStartTime string // HH:MM, local time of day
	OperatingEndTime   string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasStop reports whether the route serves the named stop (case-insensitive).
func (r *Route) HasStop(stop string) bool {
	stop = strings.ToLower(strings.TrimSpace(stop))
	for _, s := range r.Stops {
		if strings.ToLower(strings.TrimSpace(s)) == stop {
			return true
		}
	}
	return false
}

// ValidateStops checks that a stop list has at least two entries and no
// case-insensitive duplicates.
func ValidateStops(stops []string) bool {
	if len(stops) < 2 {
		return false
	}
	seen := make(map[string]struct{}, len(stops))
	for _, stop := range stops {
		key := strings.ToLower(strings.TrimSpace(stop))
		if key == "" {
			return false
		}
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

// OperatingAt reports whether the route operates at the given clock time.
// Routes without configured hours operate around the clock. Windows that
// cross midnight (e.g. 22:00-02:00) are supported.
func (r *Route) OperatingAt(t time.Time) bool {
	if r.OperatingStartTime == "" || r.OperatingEndTime == "" {
		return true
	}
	start, err := time.Parse("15:04", r.OperatingStartTime)
	if err != nil {
		return true
	}
	end, err := time.Parse("15:04", r.OperatingEndTime)
	if err != nil {
		return true
	}
	minutes := t.Hour()*60 + t.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin <= endMin {
		return minutes >= startMin && minutes <= endMin
	}
	return minutes >= startMin || minutes <= endMin
}
