package optimizer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Optimizer is the outbound fleet-routing port. Implementations make a single
// attempt; retrying a failed run is the caller's decision.
type Optimizer interface {
	Optimize(ctx context.Context, req *Request) (*Response, error)
}

type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Shipment is one deliverable unit; the engine emits one per visit group.
type Shipment struct {
	Location        LatLng `json:"location"`
	ServiceDuration string `json:"serviceDuration"`
	LoadDemand      int    `json:"loadDemand"`
}

// Vehicle is one driver's capacity for the day.
type Vehicle struct {
	StartLocation LatLng `json:"startLocation"`
	EndLocation   LatLng `json:"endLocation"`
	Label         string `json:"label"`
	LoadCapacity  int    `json:"loadCapacity"`
}

type Request struct {
	GlobalStartTime time.Time  `json:"globalStartTime"`
	GlobalEndTime   time.Time  `json:"globalEndTime"`
	Shipments       []Shipment `json:"shipments"`
	Vehicles        []Vehicle  `json:"vehicles"`
}

// Visit references a shipment by its index in Request.Shipments. The
// optimizer may omit a zero index and the start time.
type Visit struct {
	ShipmentIndex int        `json:"shipmentIndex"`
	StartTime     *time.Time `json:"startTime,omitempty"`
}

type RouteMetrics struct {
	DistanceMeters int64  `json:"distanceMeters"`
	Duration       string `json:"duration"`
}

type Route struct {
	VehicleLabel string       `json:"vehicleLabel"`
	Visits       []Visit      `json:"visits"`
	Metrics      RouteMetrics `json:"metrics"`
	Polyline     *string      `json:"polyline,omitempty"`
}

type SkipReason struct {
	Code string `json:"code"`
}

type SkippedShipment struct {
	Index   int          `json:"index"`
	Reasons []SkipReason `json:"reasons,omitempty"`
}

type Response struct {
	Routes           []Route           `json:"routes"`
	SkippedShipments []SkippedShipment `json:"skippedShipments,omitempty"`
}

// FormatDuration renders d in the optimizer's "<seconds>s" notation.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d/time.Second))
}

// ParseDuration parses the optimizer's duration notation. Empty means zero.
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
