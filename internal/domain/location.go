package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// ParseDepot parses the depot coordinate from raw configuration values.
func ParseDepot(rawLat, rawLng string) (Location, error) {
	rawLat = strings.TrimSpace(rawLat)
	rawLng = strings.TrimSpace(rawLng)
	if rawLat == "" || rawLng == "" {
		return Location{}, fmt.Errorf("%w: depot location is not configured", ErrValidation)
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: invalid depot latitude %q", ErrValidation, rawLat)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return Location{}, fmt.Errorf("%w: invalid depot longitude %q", ErrValidation, rawLng)
	}
	if !ValidCoordinates(lat, lng) {
		return Location{}, fmt.Errorf("%w: depot coordinates out of range (%v, %v)", ErrValidation, lat, lng)
	}

	return Location{Lat: lat, Lng: lng}, nil
}
