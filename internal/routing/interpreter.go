package routing

import (
	"fmt"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
)

// DefaultETAStep advances an arrival estimate when the optimizer reports no
// visit time, and is the minimum spacing for fallback stops.
const DefaultETAStep = 10 * time.Minute

// PlannedStop is a stop before persistence.
type PlannedStop struct {
	OrderID          string
	GroupIndex       int
	Sequence         int
	EstimatedArrival time.Time
}

// PlannedRoute is a driver's route before persistence. LastETA is the running
// arrival estimate later appends continue from.
type PlannedRoute struct {
	DriverID        string
	DistanceMeters  int64
	DurationSeconds int64
	Polyline        *string
	Fallback        bool
	Stops           []PlannedStop
	LastETA         time.Time
}

func (r *PlannedRoute) StopCount() int { return len(r.Stops) }

func (r *PlannedRoute) appendGroup(g VisitGroup, eta time.Time) {
	for _, o := range g.Orders {
		r.Stops = append(r.Stops, PlannedStop{
			OrderID:          o.ID,
			GroupIndex:       g.Index,
			Sequence:         len(r.Stops) + 1,
			EstimatedArrival: eta,
		})
	}
	r.LastETA = eta
}

type InterpretInput struct {
	Groups   []VisitGroup
	Drivers  []domain.Driver
	Window   Window
	Solution *optimizer.Response
}

type Interpretation struct {
	Routes []*PlannedRoute
	// Uncovered holds ascending indices of groups no usable visit referenced.
	Uncovered []int
	Warnings  []string
}

// Interpret maps the optimizer's visits back onto visit groups. Visits with
// unknown shipment indices, repeat visits of a group and routes of unknown
// vehicles are dropped; their groups fall to the fallback assigner.
func Interpret(in InterpretInput) Interpretation {
	var out Interpretation

	known := make(map[string]struct{}, len(in.Drivers))
	for _, d := range in.Drivers {
		known[d.ID] = struct{}{}
	}

	covered := make([]bool, len(in.Groups))
	byDriver := make(map[string]*PlannedRoute)

	var solutionRoutes []optimizer.Route
	if in.Solution != nil {
		solutionRoutes = in.Solution.Routes
	}

	for _, sr := range solutionRoutes {
		if len(sr.Visits) == 0 {
			continue
		}
		if _, ok := known[sr.VehicleLabel]; len(known) > 0 && !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("ignored route for unknown vehicle %q", sr.VehicleLabel))
			continue
		}

		route, existing := byDriver[sr.VehicleLabel]
		if !existing {
			route = &PlannedRoute{DriverID: sr.VehicleLabel, LastETA: in.Window.Start}
		}

		for _, v := range sr.Visits {
			if v.ShipmentIndex < 0 || v.ShipmentIndex >= len(in.Groups) {
				out.Warnings = append(out.Warnings, fmt.Sprintf("ignored visit to unknown shipment %d", v.ShipmentIndex))
				continue
			}
			if covered[v.ShipmentIndex] {
				out.Warnings = append(out.Warnings, fmt.Sprintf("ignored repeat visit to shipment %d", v.ShipmentIndex))
				continue
			}
			covered[v.ShipmentIndex] = true

			eta := route.LastETA.Add(DefaultETAStep)
			if v.StartTime != nil {
				eta = v.StartTime.In(in.Window.Start.Location())
			}
			if eta.Before(route.LastETA) {
				eta = route.LastETA
			}
			route.appendGroup(in.Groups[v.ShipmentIndex], eta)
		}

		if len(route.Stops) == 0 {
			continue
		}

		duration, err := optimizer.ParseDuration(sr.Metrics.Duration)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("vehicle %q: %v", sr.VehicleLabel, err))
		}
		route.DistanceMeters += sr.Metrics.DistanceMeters
		route.DurationSeconds += int64(duration / time.Second)
		if sr.Polyline != nil && route.Polyline == nil {
			polyline := *sr.Polyline
			route.Polyline = &polyline
		}

		if !existing {
			byDriver[sr.VehicleLabel] = route
			out.Routes = append(out.Routes, route)
		}
	}

	for i, ok := range covered {
		if !ok {
			out.Uncovered = append(out.Uncovered, i)
		}
	}

	return out
}
