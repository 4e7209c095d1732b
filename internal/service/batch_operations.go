package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/observability"
	"github.com/kursadbilgin/route-engine/internal/queue"
	"github.com/kursadbilgin/route-engine/internal/routing"
	"go.uber.org/zap"
)

func (s *RouteGenerationService) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batchID, err := requireID(batchID, "batchId")
	if err != nil {
		return nil, err
	}
	return s.batches.GetByID(ctx, batchID)
}

// LockBatch closes a collecting batch to new orders.
func (s *RouteGenerationService) LockBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batchID, err := requireID(batchID, "batchId")
	if err != nil {
		return nil, err
	}

	batch, err := s.batches.Lock(ctx, batchID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	observability.BatchLogger(s.logger, ctx, batch.ID).Info("batch locked")
	return batch, nil
}

// CompleteBatch marks a batch dispatched. Its routes are frozen afterwards.
func (s *RouteGenerationService) CompleteBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batchID, err := requireID(batchID, "batchId")
	if err != nil {
		return nil, err
	}

	batch, err := s.batches.Complete(ctx, batchID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	observability.BatchLogger(s.logger, ctx, batch.ID).Info("batch completed")
	return batch, nil
}

func (s *RouteGenerationService) ListRoutes(ctx context.Context, batchID string) ([]domain.Route, error) {
	batchID, err := requireID(batchID, "batchId")
	if err != nil {
		return nil, err
	}
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.routes.ListByBatch(ctx, batchID)
}

func (s *RouteGenerationService) UpdateStopStatus(ctx context.Context, stopID string, rawStatus string) (*domain.Stop, error) {
	stopID, err := requireID(stopID, "stopId")
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseStopStatusFromString(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.routes.UpdateStopStatus(ctx, stopID, status)
}

// EnqueueGeneration validates what it can without loading the batch and
// hands the run to the generation worker.
func (s *RouteGenerationService) EnqueueGeneration(ctx context.Context, req GenerateRequest) error {
	if s.publisher == nil {
		return fmt.Errorf("async generation is not configured")
	}

	batchID, err := requireID(req.BatchID, "batchId")
	if err != nil {
		return err
	}
	if err := validateClockFields(req.StartTime, req.EndTime); err != nil {
		return err
	}

	source := req.Source
	if source == "" {
		source = queue.SourceAPI
	}

	msg := queue.GenerationRequestMessage{
		BatchID:     batchID,
		DriverIDs:   uniqueIDs(req.DriverIDs),
		StartTime:   strings.TrimSpace(req.StartTime),
		EndTime:     strings.TrimSpace(req.EndTime),
		Source:      source,
		RequestedAt: s.now().UTC(),
	}
	if correlationID, ok := observability.CorrelationIDFromContext(ctx); ok {
		msg.CorrelationID = correlationID
	}

	if err := s.publisher.PublishGenerationRequest(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue route generation: %w", err)
	}

	observability.BatchLogger(s.logger, ctx, batchID).Info("route generation queued",
		zap.String("source", string(source)),
	)
	return nil
}

func requireID(id string, field string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return id, nil
}

func validateClockFields(start string, end string) error {
	if v := strings.TrimSpace(start); v != "" && !routing.ValidClock(v) {
		return fmt.Errorf("%w: startTime must match HH:mm, got %q", domain.ErrValidation, start)
	}
	if v := strings.TrimSpace(end); v != "" && !routing.ValidClock(v) {
		return fmt.Errorf("%w: endTime must match HH:mm, got %q", domain.ErrValidation, end)
	}
	return nil
}
