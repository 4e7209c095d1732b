package routing

import (
	"fmt"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
)

type FallbackMode string

const (
	// FallbackModeCreated means the optimizer produced no usable route and one
	// route was created on the first driver.
	FallbackModeCreated FallbackMode = "created"
	// FallbackModeAppended means uncovered groups were spread over existing routes.
	FallbackModeAppended FallbackMode = "appended"
)

func (m FallbackMode) String() string { return string(m) }

const unspecifiedSkipCode = "UNSPECIFIED"

type SkipReason struct {
	ShipmentIndex int    `json:"shipmentIndex"`
	Code          string `json:"code"`
}

// FallbackSummary is informational output of a run that needed fallback placement.
type FallbackSummary struct {
	Mode         FallbackMode `json:"mode"`
	OrdersPlaced int          `json:"ordersPlaced"`
	SkipReasons  []SkipReason `json:"skipReasons,omitempty"`
}

type FallbackInput struct {
	Routes    []*PlannedRoute
	Groups    []VisitGroup
	Uncovered []int
	Drivers   []domain.Driver
	Window    Window
	Skipped   []optimizer.SkippedShipment
}

type FallbackResult struct {
	Routes  []*PlannedRoute
	Summary *FallbackSummary
}

// AssignFallback places every uncovered group so that each order ends up
// with exactly one stop. Existing routes are extended greedily by fewest
// stops; a route is only created when none exist.
func AssignFallback(in FallbackInput) (FallbackResult, error) {
	result := FallbackResult{Routes: in.Routes}
	if len(in.Uncovered) == 0 {
		return result, nil
	}

	for _, idx := range in.Uncovered {
		if idx < 0 || idx >= len(in.Groups) {
			return FallbackResult{}, fmt.Errorf("uncovered group index %d out of range", idx)
		}
	}

	summary := &FallbackSummary{SkipReasons: skipReasons(in.Skipped)}

	if len(in.Routes) == 0 {
		if len(in.Drivers) == 0 {
			return FallbackResult{}, fmt.Errorf("%w: no eligible drivers for fallback route", domain.ErrValidation)
		}

		route := &PlannedRoute{
			DriverID: in.Drivers[0].ID,
			Fallback: true,
			LastETA:  in.Window.Start,
		}
		summary.Mode = FallbackModeCreated
		summary.OrdersPlaced = placeGroups(route, in.Groups, in.Uncovered, in.Window)

		result.Routes = []*PlannedRoute{route}
		result.Summary = summary
		return result, nil
	}

	summary.Mode = FallbackModeAppended

	pending := make(map[*PlannedRoute][]int, len(in.Routes))
	load := make([]int, len(in.Routes))
	for i, r := range in.Routes {
		load[i] = r.StopCount()
	}

	for _, idx := range in.Uncovered {
		target := 0
		for i := 1; i < len(in.Routes); i++ {
			if load[i] < load[target] {
				target = i
			}
		}
		load[target] += in.Groups[idx].OrderCount()
		route := in.Routes[target]
		pending[route] = append(pending[route], idx)
	}

	for _, route := range in.Routes {
		indices, ok := pending[route]
		if !ok {
			continue
		}
		summary.OrdersPlaced += placeGroups(route, in.Groups, indices, in.Window)
	}

	result.Summary = summary
	return result, nil
}

// placeGroups appends the groups' orders to route with ETAs spread evenly
// between the route's last ETA and the window end, at least DefaultETAStep apart.
func placeGroups(route *PlannedRoute, groups []VisitGroup, indices []int, window Window) int {
	orders := 0
	for _, idx := range indices {
		orders += groups[idx].OrderCount()
	}

	from := route.LastETA
	if from.IsZero() {
		from = window.Start
	}
	etas := spacedETAs(from, window.End, orders)

	next := 0
	for _, idx := range indices {
		g := groups[idx]
		for _, o := range g.Orders {
			route.Stops = append(route.Stops, PlannedStop{
				OrderID:          o.ID,
				GroupIndex:       g.Index,
				Sequence:         len(route.Stops) + 1,
				EstimatedArrival: etas[next],
			})
			route.LastETA = etas[next]
			next++
		}
	}

	return orders
}

func spacedETAs(from, end time.Time, n int) []time.Time {
	step := DefaultETAStep
	if remaining := end.Sub(from); remaining > 0 {
		if even := remaining / time.Duration(n+1); even > step {
			step = even
		}
	}

	etas := make([]time.Time, n)
	for i := range etas {
		etas[i] = from.Add(step * time.Duration(i+1))
	}
	return etas
}

func skipReasons(skipped []optimizer.SkippedShipment) []SkipReason {
	var reasons []SkipReason
	for _, s := range skipped {
		if len(s.Reasons) == 0 {
			reasons = append(reasons, SkipReason{ShipmentIndex: s.Index, Code: unspecifiedSkipCode})
			continue
		}
		for _, r := range s.Reasons {
			code := r.Code
			if code == "" {
				code = unspecifiedSkipCode
			}
			reasons = append(reasons, SkipReason{ShipmentIndex: s.Index, Code: code})
		}
	}
	return reasons
}
