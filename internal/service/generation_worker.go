package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/observability"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
	"github.com/kursadbilgin/route-engine/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// Generator runs one generation; RouteGenerationService implements it.
type Generator interface {
	GenerateWhenFree(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// GenerationWorker consumes queued generation requests. Every consumer
// shares the single routes.generate queue; per-batch exclusion comes from
// the batch lock taken inside the generator.
type GenerationWorker struct {
	consumer    queue.Consumer
	generator   Generator
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewGenerationWorker(
	consumer queue.Consumer,
	generator Generator,
	concurrency int,
	logger *zap.Logger,
) (*GenerationWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GenerationWorker{
		consumer:    consumer,
		generator:   generator,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (w *GenerationWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes generation requests until context cancellation.
func (w *GenerationWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.GenerateQueue),
			)

			err := w.consumer.Consume(groupCtx, queue.GenerateQueue, w.processMessage)
			if err != nil {
				w.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queue.GenerateQueue),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.GenerateQueue),
			)
			return nil
		})
	}

	return g.Wait()
}

func (w *GenerationWorker) processMessage(ctx context.Context, msg queue.GenerationRequestMessage) error {
	w.metrics.IncWorkerInFlight()
	defer w.metrics.DecWorkerInFlight()

	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.BatchLogger(w.logger, ctx, msg.BatchID).With(zap.String("source", string(msg.Source)))

	result, err := w.generator.GenerateWhenFree(ctx, GenerateRequest{
		BatchID:         msg.BatchID,
		DriverIDs:       msg.DriverIDs,
		StartTime:       msg.StartTime,
		EndTime:         msg.EndTime,
		Source:          msg.Source,
		SkipIfGenerated: msg.Source == queue.SourceScheduler,
	})
	if err != nil {
		if isPermanentGenerationError(err) {
			logger.Warn("route generation rejected, dead-lettering request", zap.Error(err))
			return queue.Permanent(err)
		}
		return fmt.Errorf("route generation failed: %w", err)
	}

	if result.Skipped {
		logger.Info("queued generation skipped")
		return nil
	}

	logger.Info("queued generation finished", zap.Int("routesCreated", result.RoutesCreated))
	return nil
}

// isPermanentGenerationError reports failures a redelivery would reproduce.
// Optimizer outages, timeouts and storage errors stay retryable.
func isPermanentGenerationError(err error) bool {
	var optErr *optimizer.Error
	if errors.As(err, &optErr) {
		return !optimizer.IsTransient(err)
	}
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}
