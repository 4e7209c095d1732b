package routing

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

func TestGroupOrdersMergesSharedLocations(t *testing.T) {
	t.Parallel()

	groups := mustGroup(t,
		newOrder("o1", 51.500001, -0.120001, "sw1a 1aa", "10 Downing St"),
		newOrder("o2", 52.0, 0.1, "CB1 1AA", "1 Market Sq"),
		newOrder("o3", 51.500004, -0.119996, " SW1A 1AA ", "10  downing st"),
		newOrder("o4", 51.500001, -0.120001, "SW1A 1AA", "11 Downing St"),
	)

	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}

	var ids [][]string
	for i, g := range groups {
		if g.Index != i {
			t.Fatalf("group %d has Index %d", i, g.Index)
		}
		var members []string
		for _, o := range g.Orders {
			members = append(members, o.ID)
		}
		ids = append(ids, members)
	}

	want := [][]string{{"o1", "o3"}, {"o2"}, {"o4"}}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("group members = %v, want %v", ids, want)
	}
	if groups[0].Lat != 51.500001 || groups[0].Lng != -0.120001 {
		t.Fatalf("representative location = (%v, %v), want first member's", groups[0].Lat, groups[0].Lng)
	}
}

func TestGroupOrdersEveryOrderInExactlyOneGroup(t *testing.T) {
	t.Parallel()

	var orders []domain.Order
	for i := 0; i < 50; i++ {
		orders = append(orders, newOrder(string(rune('A'+i%26))+string(rune('a'+i/26)), 51+float64(i%7)*0.01, -0.1, "PC", "Line"))
	}

	groups := mustGroup(t, orders...)

	seen := make(map[string]int)
	for _, g := range groups {
		for _, o := range g.Orders {
			seen[o.ID]++
		}
	}
	if len(seen) != len(orders) {
		t.Fatalf("grouped %d distinct orders, want %d", len(seen), len(orders))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("order %s appears in %d groups", id, n)
		}
	}
	if len(groups) != 7 {
		t.Fatalf("groups = %d, want 7", len(groups))
	}
}

func TestLocationKeyNormalization(t *testing.T) {
	t.Parallel()

	a := LocationKey(newOrder("a", 0.000001, -0.000001, " ab1 2cd", "  flat 2,  High Street "))
	b := LocationKey(newOrder("b", -0.000004, 0.000002, "AB1 2CD", "FLAT 2, HIGH STREET"))
	if a != b {
		t.Fatalf("LocationKey() mismatch:\n%s\n%s", a, b)
	}
	if a != "0.00000|0.00000|AB1 2CD|FLAT 2, HIGH STREET" {
		t.Fatalf("LocationKey() = %q", a)
	}
}

func TestGroupOrdersRejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	missing := domain.Order{ID: "o-missing", Postcode: "X"}
	_, err := GroupOrders([]domain.Order{
		newOrder("o1", 51.5, -0.12, "A", "B"),
		newOrder("o-bad", 999, -0.12, "A", "B"),
		missing,
		newOrder("o-nan", math.NaN(), 0, "A", "B"),
	})

	var locErr *InvalidLocationError
	if !errors.As(err, &locErr) {
		t.Fatalf("GroupOrders() error = %v, want InvalidLocationError", err)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GroupOrders() error = %v, want ErrValidation", err)
	}
	want := []string{"o-bad", "o-missing", "o-nan"}
	if !reflect.DeepEqual(locErr.OrderIDs, want) {
		t.Fatalf("OrderIDs = %v, want %v", locErr.OrderIDs, want)
	}
}
