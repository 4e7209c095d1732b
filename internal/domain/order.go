package domain

import "math"

// Order is the read-only view of a paid order the routing engine needs.
type Order struct {
	ID       string
	Lat      *float64
	Lng      *float64
	Postcode string
	Line1    string
}

// HasValidLocation reports whether the order carries finite, in-range coordinates.
func (o Order) HasValidLocation() bool {
	if o.Lat == nil || o.Lng == nil {
		return false
	}
	return ValidCoordinates(*o.Lat, *o.Lng)
}

func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
