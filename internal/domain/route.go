package domain

import (
	"fmt"
	"strings"
	"time"
)

// StopStatus represents the delivery outcome of a stop.
type StopStatus string

const (
	StopStatusPending   StopStatus = "pending"
	StopStatusDelivered StopStatus = "delivered"
	StopStatusFailed    StopStatus = "failed"
)

func (s StopStatus) String() string { return string(s) }

func (s StopStatus) IsValid() bool {
	switch s {
	case StopStatusPending, StopStatusDelivered, StopStatusFailed:
		return true
	}
	return false
}

func ParseStopStatusFromString(s string) (StopStatus, error) {
	st := StopStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid stop status %q", ErrValidation, s)
	}
	return st, nil
}

// Route is one driver's sequence of stops within a batch.
type Route struct {
	ID              string
	BatchID         string
	DriverID        string
	Position        int
	StopCount       int
	DistanceMeters  int64
	DurationSeconds int64
	Polyline        *string
	Fallback        bool
	Stops           []Stop
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Stop is one order's scheduled delivery on a route.
type Stop struct {
	ID               string
	RouteID          string
	BatchID          string
	OrderID          string
	Sequence         int
	EstimatedArrival time.Time
	Status           StopStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
