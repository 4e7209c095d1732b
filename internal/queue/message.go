package queue

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies who asked for a generation run.
type Source string

const (
	SourceAPI       Source = "api"
	SourceScheduler Source = "scheduler"
)

func (s Source) IsValid() bool {
	return s == SourceAPI || s == SourceScheduler
}

// GenerationRequestMessage is the broker payload asking the worker to
// generate routes for a batch.
type GenerationRequestMessage struct {
	BatchID       string    `json:"batchId"`
	DriverIDs     []string  `json:"driverIds,omitempty"`
	StartTime     string    `json:"startTime,omitempty"`
	EndTime       string    `json:"endTime,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Source        Source    `json:"source"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (m GenerationRequestMessage) Validate() error {
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if !m.Source.IsValid() {
		return fmt.Errorf("invalid source %q", m.Source)
	}
	return nil
}

// RoutesGeneratedEvent announces a committed generation run.
type RoutesGeneratedEvent struct {
	BatchID       string    `json:"batchId"`
	RouteIDs      []string  `json:"routeIds"`
	RoutesCreated int       `json:"routesCreated"`
	OrdersRouted  int       `json:"ordersRouted"`
	FallbackMode  string    `json:"fallbackMode,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

func (e RoutesGeneratedEvent) Validate() error {
	if strings.TrimSpace(e.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if e.RoutesCreated != len(e.RouteIDs) {
		return fmt.Errorf("routesCreated %d does not match %d route ids", e.RoutesCreated, len(e.RouteIDs))
	}
	return nil
}
