// Package routing turns a batch of geocoded orders into optimizer shipments
// and the optimizer's (possibly partial) solution back into sequenced,
// driver-assigned stops. Everything here is pure: callers own I/O, clocks
// and persistence.
package routing

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

const keySeparator = "|"

// VisitGroup is a set of orders sharing one drop-off location. Index is the
// shipment index used in the optimizer request.
type VisitGroup struct {
	Index  int
	Key    string
	Lat    float64
	Lng    float64
	Orders []domain.Order
}

func (g VisitGroup) OrderCount() int { return len(g.Orders) }

// InvalidLocationError lists orders that lack finite, in-range coordinates.
type InvalidLocationError struct {
	OrderIDs []string
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("%s: %d order(s) have missing or invalid coordinates: %s",
		domain.ErrValidation, len(e.OrderIDs), strings.Join(e.OrderIDs, ", "))
}

func (e *InvalidLocationError) Unwrap() error { return domain.ErrValidation }

func (e *InvalidLocationError) InvalidOrderIDs() []string { return e.OrderIDs }

// InvalidLocations returns, in input order, the ids of orders whose location is unusable.
func InvalidLocations(orders []domain.Order) []string {
	var invalid []string
	for _, o := range orders {
		if !o.HasValidLocation() {
			invalid = append(invalid, o.ID)
		}
	}
	return invalid
}

// LocationKey identifies an effective delivery location.
func LocationKey(o domain.Order) string {
	var lat, lng float64
	if o.Lat != nil {
		lat = *o.Lat
	}
	if o.Lng != nil {
		lng = *o.Lng
	}

	return strings.Join([]string{
		formatCoordinate(lat),
		formatCoordinate(lng),
		normalizeAddressPart(o.Postcode),
		normalizeAddressPart(o.Line1),
	}, keySeparator)
}

// GroupOrders clusters orders by LocationKey, keeping first-seen order for
// both groups and their members.
func GroupOrders(orders []domain.Order) ([]VisitGroup, error) {
	if invalid := InvalidLocations(orders); len(invalid) > 0 {
		return nil, &InvalidLocationError{OrderIDs: invalid}
	}

	groups := make([]VisitGroup, 0, len(orders))
	byKey := make(map[string]int, len(orders))
	for _, o := range orders {
		key := LocationKey(o)
		if idx, ok := byKey[key]; ok {
			groups[idx].Orders = append(groups[idx].Orders, o)
			continue
		}

		byKey[key] = len(groups)
		groups = append(groups, VisitGroup{
			Index:  len(groups),
			Key:    key,
			Lat:    *o.Lat,
			Lng:    *o.Lng,
			Orders: []domain.Order{o},
		})
	}

	return groups, nil
}

func formatCoordinate(v float64) string {
	s := fmt.Sprintf("%.5f", v)
	// -0.00000 and 0.00000 are the same place.
	if strings.Trim(s, "-0.") == "" {
		return "0.00000"
	}
	return s
}

func normalizeAddressPart(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
