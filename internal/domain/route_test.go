package domain

import (
	"testing"
	"time"
)

func TestValidateStops(t *testing.T) {
	cases := []struct {
		name  string
		stops []string
		want  bool
	}{
		{"two stops", []string{"Central", "Harbor"}, true},
		{"many stops", []string{"Central", "Harbor", "Airport"}, true},
		{"single stop", []string{"Central"}, false},
		{"empty list", nil, false},
		{"blank stop", []string{"Central", "  "}, false},
		{"duplicate", []string{"Central", "central"}, false},
		{"duplicate with spacing", []string{"Central", " Central "}, false},
	}
	for _, tc := range cases {
		if got := ValidateStops(tc.stops); got != tc.want {
			t.Errorf("%s: ValidateStops = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHasStop(t *testing.T) {
	route := &Route{Stops: []string{"Central", "Harbor", "Airport"}}
	if !route.HasStop("harbor") {
		t.Error("stop match should be case-insensitive")
	}
	if !route.HasStop(" Central ") {
		t.Error("stop match should ignore surrounding spaces")
	}
	if route.HasStop("Docks") {
		t.Error("unknown stop must not match")
	}
}

func TestOperatingAt(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2025, 1, 10, hour, minute, 0, 0, time.UTC)
	}

	day := &Route{OperatingStartTime: "06:00", OperatingEndTime: "23:00"}
	if !day.OperatingAt(at(12, 0)) {
		t.Error("noon should be inside a 06:00-23:00 window")
	}
	if !day.OperatingAt(at(6, 0)) {
		t.Error("window start is inclusive")
	}
	if !day.OperatingAt(at(23, 0)) {
		t.Error("window end is inclusive")
	}
	if day.OperatingAt(at(5, 59)) {
		t.Error("before the window must not operate")
	}
	if day.OperatingAt(at(23, 30)) {
		t.Error("after the window must not operate")
	}

	night := &Route{OperatingStartTime: "22:00", OperatingEndTime: "02:00"}
	if !night.OperatingAt(at(23, 30)) {
		t.Error("late evening should be inside a midnight-crossing window")
	}
	if !night.OperatingAt(at(1, 0)) {
		t.Error("early morning should be inside a midnight-crossing window")
	}
	if night.OperatingAt(at(12, 0)) {
		t.Error("midday must be outside a 22:00-02:00 window")
	}

	always := &Route{}
	if !always.OperatingAt(at(3, 0)) {
		t.Error("routes without hours operate around the clock")
	}

	malformed := &Route{OperatingStartTime: "late", OperatingEndTime: "02:00"}
	if !malformed.OperatingAt(at(12, 0)) {
		t.Error("unparseable hours fall back to always operating")
	}
}
