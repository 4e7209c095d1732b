package domain

import (
	"errors"
	"math"
	"testing"
)

func TestParseBatchStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    BatchStatus
		wantErr bool
	}{
		{name: "valid lowercase", input: "locked", want: BatchStatusLocked},
		{name: "valid uppercase with spaces", input: " ROUTES_GENERATED ", want: BatchStatusRoutesGenerated},
		{name: "invalid", input: "dispatched", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseBatchStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseBatchStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseBatchStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseBatchStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBatchStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from BatchStatus
		to   BatchStatus
		want bool
	}{
		{from: BatchStatusCollecting, to: BatchStatusLocked, want: true},
		{from: BatchStatusCollecting, to: BatchStatusRoutesGenerated, want: false},
		{from: BatchStatusLocked, to: BatchStatusRoutesGenerated, want: true},
		{from: BatchStatusRoutesGenerated, to: BatchStatusRoutesGenerated, want: true},
		{from: BatchStatusRoutesGenerated, to: BatchStatusCompleted, want: true},
		{from: BatchStatusLocked, to: BatchStatusCompleted, want: false},
		{from: BatchStatusCompleted, to: BatchStatusRoutesGenerated, want: false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStopStatusFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseStopStatusFromString(" Delivered ")
	if err != nil {
		t.Fatalf("ParseStopStatusFromString() unexpected error = %v", err)
	}
	if got != StopStatusDelivered {
		t.Fatalf("ParseStopStatusFromString() = %s, want %s", got, StopStatusDelivered)
	}

	_, err = ParseStopStatusFromString("lost")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseStopStatusFromString() error = %v, want ErrValidation", err)
	}
}

func TestOrderHasValidLocation(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name  string
		order Order
		want  bool
	}{
		{name: "valid", order: Order{Lat: f(51.5), Lng: f(-0.12)}, want: true},
		{name: "boundaries", order: Order{Lat: f(-90), Lng: f(180)}, want: true},
		{name: "missing lat", order: Order{Lng: f(1)}, want: false},
		{name: "latitude out of range", order: Order{Lat: f(999), Lng: f(0)}, want: false},
		{name: "longitude out of range", order: Order{Lat: f(0), Lng: f(-180.5)}, want: false},
		{name: "nan", order: Order{Lat: f(math.NaN()), Lng: f(0)}, want: false},
		{name: "infinite", order: Order{Lat: f(0), Lng: f(math.Inf(1))}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.order.HasValidLocation(); got != tt.want {
				t.Fatalf("HasValidLocation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDriverEligible(t *testing.T) {
	t.Parallel()

	if !(Driver{ID: "d1", Active: true, Roles: []string{"admin", " Driver "}}).Eligible() {
		t.Fatal("active driver with driver role should be eligible")
	}
	if (Driver{ID: "d2", Active: false, Roles: []string{"driver"}}).Eligible() {
		t.Fatal("inactive driver should not be eligible")
	}
	if (Driver{ID: "d3", Active: true, Roles: []string{"packer"}}).Eligible() {
		t.Fatal("identity without driver role should not be eligible")
	}
}

func TestParseDepot(t *testing.T) {
	t.Parallel()

	loc, err := ParseDepot(" 51.5074 ", "-0.1278")
	if err != nil {
		t.Fatalf("ParseDepot() unexpected error = %v", err)
	}
	if loc.Lat != 51.5074 || loc.Lng != -0.1278 {
		t.Fatalf("ParseDepot() = %+v", loc)
	}

	for _, tc := range [][2]string{{"", "1"}, {"abc", "1"}, {"1", "x"}, {"91", "0"}} {
		if _, err := ParseDepot(tc[0], tc[1]); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseDepot(%q, %q) error = %v, want ErrValidation", tc[0], tc[1], err)
		}
	}
}
