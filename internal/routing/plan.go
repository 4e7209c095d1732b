package routing

import (
	"errors"
	"fmt"
)

// CheckPlan verifies a finished plan before it is persisted: every order has
// exactly one stop, sequences run 1..k, no route is empty, no driver has two
// routes and ETAs never decrease along a route.
func CheckPlan(groups []VisitGroup, routes []*PlannedRoute) error {
	expected := make(map[string]bool)
	for _, g := range groups {
		for _, o := range g.Orders {
			expected[o.ID] = false
		}
	}

	var errs []error
	drivers := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		if len(r.Stops) == 0 {
			errs = append(errs, fmt.Errorf("route for driver %q has no stops", r.DriverID))
		}
		if _, dup := drivers[r.DriverID]; dup {
			errs = append(errs, fmt.Errorf("driver %q has more than one route", r.DriverID))
		}
		drivers[r.DriverID] = struct{}{}

		for i, s := range r.Stops {
			if s.Sequence != i+1 {
				errs = append(errs, fmt.Errorf("driver %q: stop %d has sequence %d", r.DriverID, i+1, s.Sequence))
			}
			if i > 0 && s.EstimatedArrival.Before(r.Stops[i-1].EstimatedArrival) {
				errs = append(errs, fmt.Errorf("driver %q: eta of stop %d precedes stop %d", r.DriverID, s.Sequence, i))
			}

			seen, ok := expected[s.OrderID]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("order %q is not part of the batch", s.OrderID))
			case seen:
				errs = append(errs, fmt.Errorf("order %q has more than one stop", s.OrderID))
			default:
				expected[s.OrderID] = true
			}
		}
	}

	for _, g := range groups {
		for _, o := range g.Orders {
			if !expected[o.ID] {
				errs = append(errs, fmt.Errorf("order %q has no stop", o.ID))
			}
		}
	}

	return errors.Join(errs...)
}
