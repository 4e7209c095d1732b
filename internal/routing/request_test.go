package routing

import (
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	groups := mustGroup(t,
		newOrder("o1", 51.5, -0.12, "A", "1"),
		newOrder("o2", 51.5, -0.12, "A", "1"),
		newOrder("o3", 51.6, -0.10, "B", "2"),
		newOrder("o4", 51.7, -0.11, "C", "3"),
		newOrder("o5", 51.7, -0.11, "C", "3"),
		newOrder("o6", 51.7, -0.11, "C", "3"),
		newOrder("o7", 51.8, -0.13, "D", "4"),
	)
	window := testWindow()

	req, err := BuildRequest(BuildInput{
		Groups:  groups,
		Drivers: drivers("d1", "d2", "d3"),
		Depot:   domain.Location{Lat: 51.45, Lng: -0.2},
		Window:  window,
	})
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}

	if len(req.Shipments) != 4 {
		t.Fatalf("shipments = %d, want 4", len(req.Shipments))
	}
	wantDurations := []string{"600s", "300s", "900s", "300s"}
	wantDemand := []int{2, 1, 3, 1}
	for i, s := range req.Shipments {
		if s.ServiceDuration != wantDurations[i] {
			t.Fatalf("shipment %d ServiceDuration = %q, want %q", i, s.ServiceDuration, wantDurations[i])
		}
		if s.LoadDemand != wantDemand[i] {
			t.Fatalf("shipment %d LoadDemand = %d, want %d", i, s.LoadDemand, wantDemand[i])
		}
		if s.Location.Latitude != groups[i].Lat || s.Location.Longitude != groups[i].Lng {
			t.Fatalf("shipment %d location = %+v, want group location", i, s.Location)
		}
	}

	if len(req.Vehicles) != 3 {
		t.Fatalf("vehicles = %d, want 3", len(req.Vehicles))
	}
	for i, v := range req.Vehicles {
		if v.Label != []string{"d1", "d2", "d3"}[i] {
			t.Fatalf("vehicle %d label = %q", i, v.Label)
		}
		if v.LoadCapacity != 3 {
			t.Fatalf("vehicle %d capacity = %d, want 3", i, v.LoadCapacity)
		}
		if v.StartLocation.Latitude != 51.45 || v.EndLocation.Longitude != -0.2 {
			t.Fatalf("vehicle %d does not start and end at the depot: %+v", i, v)
		}
	}

	if !req.GlobalStartTime.Equal(window.Start) || !req.GlobalEndTime.Equal(window.End) {
		t.Fatalf("global window = %v..%v, want %v..%v", req.GlobalStartTime, req.GlobalEndTime, window.Start, window.End)
	}
}

func TestBuildRequestValidation(t *testing.T) {
	t.Parallel()

	groups := mustGroup(t, newOrder("o1", 51.5, -0.12, "A", "1"))
	window := testWindow()

	tests := []struct {
		name string
		in   BuildInput
	}{
		{name: "no groups", in: BuildInput{Drivers: drivers("d1"), Window: window}},
		{name: "no drivers", in: BuildInput{Groups: groups, Window: window}},
		{name: "empty window", in: BuildInput{Groups: groups, Drivers: drivers("d1"), Window: Window{Start: window.Start, End: window.Start}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := BuildRequest(tt.in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("BuildRequest() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestServiceDurationAndCapacity(t *testing.T) {
	t.Parallel()

	if got := ServiceDuration(0); got != 60*time.Second {
		t.Fatalf("ServiceDuration(0) = %v, want 60s", got)
	}
	if got := ServiceDuration(4); got != 20*time.Minute {
		t.Fatalf("ServiceDuration(4) = %v, want 20m", got)
	}

	capacities := []struct{ orders, drivers, want int }{
		{orders: 7, drivers: 3, want: 3},
		{orders: 6, drivers: 3, want: 2},
		{orders: 1, drivers: 5, want: 1},
		{orders: 4, drivers: 0, want: 4},
	}
	for _, c := range capacities {
		if got := VehicleCapacity(c.orders, c.drivers); got != c.want {
			t.Fatalf("VehicleCapacity(%d, %d) = %d, want %d", c.orders, c.drivers, got, c.want)
		}
	}
}
