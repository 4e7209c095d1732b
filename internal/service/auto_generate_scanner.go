package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/route-engine/internal/observability"
	"github.com/kursadbilgin/route-engine/internal/queue"
	"github.com/kursadbilgin/route-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultAutoGenerateInterval = 5 * time.Minute
	defaultAutoGenerateLimit    = 50
)

// AutoGenerateScanner periodically enqueues generation for locked batches
// that still have no routes.
type AutoGenerateScanner struct {
	batches   repository.BatchRepository
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	location  *time.Location
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func NewAutoGenerateScanner(
	batches repository.BatchRepository,
	publisher queue.Publisher,
	location *time.Location,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*AutoGenerateScanner, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if location == nil {
		location = time.UTC
	}
	if interval <= 0 {
		interval = defaultAutoGenerateInterval
	}
	if limit <= 0 {
		limit = defaultAutoGenerateLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AutoGenerateScanner{
		batches:   batches,
		publisher: publisher,
		logger:    logger,
		location:  location,
		interval:  interval,
		limit:     limit,
		now:       time.Now,
	}, nil
}

func (s *AutoGenerateScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *AutoGenerateScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scan(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("auto-generate initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("auto-generate scan failed", zap.Error(err))
			}
		}
	}
}

// scan enqueues one request per waiting batch. Requests are idempotent on
// the worker side, so a batch seen by consecutive scans is harmless.
func (s *AutoGenerateScanner) scan(ctx context.Context) error {
	now := s.now()
	today := now.In(s.location)

	batches, err := s.batches.ListAwaitingRoutes(ctx, today, s.limit)
	if err != nil {
		return fmt.Errorf("failed to list batches awaiting routes: %w", err)
	}

	for i := range batches {
		batch := batches[i]
		msg := queue.GenerationRequestMessage{
			BatchID:     batch.ID,
			Source:      queue.SourceScheduler,
			RequestedAt: now.UTC(),
		}

		if err := s.publisher.PublishGenerationRequest(ctx, msg); err != nil {
			s.logger.Error("failed to enqueue auto-generation",
				zap.String("batchId", batch.ID),
				zap.Error(err),
			)
			continue
		}

		s.metrics.IncAutoGenerateEnqueued()
		s.logger.Info("auto-generation enqueued",
			zap.String("batchId", batch.ID),
			zap.String("deliveryDate", batch.DeliveryDate.Format(time.DateOnly)),
		)
	}

	return nil
}
