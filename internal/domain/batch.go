package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus represents the lifecycle state of a delivery batch.
type BatchStatus string

const (
	BatchStatusCollecting      BatchStatus = "collecting"
	BatchStatusLocked          BatchStatus = "locked"
	BatchStatusRoutesGenerated BatchStatus = "routes_generated"
	BatchStatusCompleted       BatchStatus = "completed"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusCollecting, BatchStatusLocked, BatchStatusRoutesGenerated, BatchStatusCompleted:
		return true
	}
	return false
}

func ParseBatchStatusFromString(s string) (BatchStatus, error) {
	st := BatchStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid batch status %q", ErrValidation, s)
	}
	return st, nil
}

// CanTransitionTo reports whether the batch lifecycle allows moving to next.
// Regenerating routes keeps a batch in routes_generated.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	switch s {
	case BatchStatusCollecting:
		return next == BatchStatusLocked
	case BatchStatusLocked:
		return next == BatchStatusRoutesGenerated
	case BatchStatusRoutesGenerated:
		return next == BatchStatusRoutesGenerated || next == BatchStatusCompleted
	}
	return false
}

// Batch is the set of orders targeted for delivery on one date.
type Batch struct {
	ID                string
	DeliveryDate      time.Time
	Status            BatchStatus
	WindowStart       *string
	WindowEnd         *string
	OrderIDs          []string
	RouteIDs          []string
	LockedAt          *time.Time
	RoutesGeneratedAt *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DeliveryDay returns the delivery date as midnight in loc.
func (b *Batch) DeliveryDay(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := b.DeliveryDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (b *Batch) Validate() error {
	if b.DeliveryDate.IsZero() {
		return fmt.Errorf("%w: delivery date is required", ErrValidation)
	}
	if !b.Status.IsValid() {
		return fmt.Errorf("%w: invalid batch status %q", ErrValidation, b.Status)
	}
	return nil
}
