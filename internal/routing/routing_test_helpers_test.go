package routing

import (
	"testing"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

func newOrder(id string, lat, lng float64, postcode, line1 string) domain.Order {
	return domain.Order{ID: id, Lat: &lat, Lng: &lng, Postcode: postcode, Line1: line1}
}

func testWindow() Window {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.Add(10 * time.Hour)}
}

func drivers(ids ...string) []domain.Driver {
	out := make([]domain.Driver, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Driver{ID: id, Active: true, Roles: []string{domain.RoleDriver}})
	}
	return out
}

func mustGroup(t *testing.T, orders ...domain.Order) []VisitGroup {
	t.Helper()

	groups, err := GroupOrders(orders)
	if err != nil {
		t.Fatalf("GroupOrders() error = %v", err)
	}
	return groups
}

func allRoutesPass(t *testing.T, groups []VisitGroup, routes []*PlannedRoute) {
	t.Helper()

	if err := CheckPlan(groups, routes); err != nil {
		t.Fatalf("CheckPlan() = %v", err)
	}
}
