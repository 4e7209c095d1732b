package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/observability"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
	"github.com/kursadbilgin/route-engine/internal/queue"
	"github.com/kursadbilgin/route-engine/internal/routing"
)

func TestNewGenerationWorkerAppliesDefaults(t *testing.T) {
	t.Parallel()

	worker, err := NewGenerationWorker(&fakeConsumer{}, &fakeGenerator{}, 0, nil)
	if err != nil {
		t.Fatalf("NewGenerationWorker() error = %v", err)
	}
	if worker.concurrency != minWorkerConcurrency {
		t.Fatalf("concurrency = %d, want %d", worker.concurrency, minWorkerConcurrency)
	}

	if _, err := NewGenerationWorker(nil, &fakeGenerator{}, 1, nil); err == nil {
		t.Fatal("expected error without consumer")
	}
	if _, err := NewGenerationWorker(&fakeConsumer{}, nil, 1, nil); err == nil {
		t.Fatal("expected error without generator")
	}
}

func TestGenerationWorkerStartsConsumersOnGenerateQueue(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	queues := make([]string, 0, 3)
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			mu.Lock()
			queues = append(queues, queueName)
			mu.Unlock()
			return nil
		},
	}

	worker, err := NewGenerationWorker(consumer, &fakeGenerator{}, 3, nil)
	if err != nil {
		t.Fatalf("NewGenerationWorker() error = %v", err)
	}
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(queues) != 3 {
		t.Fatalf("consumers = %d, want 3", len(queues))
	}
	for _, q := range queues {
		if q != queue.GenerateQueue {
			t.Fatalf("queue = %s, want %s", q, queue.GenerateQueue)
		}
	}
}

func TestGenerationWorkerStartPropagatesConsumerError(t *testing.T) {
	t.Parallel()

	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			return errors.New("channel closed")
		},
	}

	worker, _ := NewGenerationWorker(consumer, &fakeGenerator{}, 2, nil)
	if err := worker.Start(context.Background()); err == nil {
		t.Fatal("Start() expected consumer error")
	}
}

func TestGenerationWorkerProcessMessageMapsRequest(t *testing.T) {
	t.Parallel()

	var got GenerateRequest
	var correlationID string
	generator := &fakeGenerator{
		generateWhenFreeFn: func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
			got = req
			correlationID, _ = observability.CorrelationIDFromContext(ctx)
			return &GenerateResult{Success: true, BatchID: req.BatchID, RoutesCreated: 2}, nil
		},
	}

	worker, _ := NewGenerationWorker(&fakeConsumer{}, generator, 1, nil)
	worker.SetMetrics(observability.NewMetrics())

	err := worker.processMessage(context.Background(), queue.GenerationRequestMessage{
		BatchID:       "b-1",
		DriverIDs:     []string{"d1"},
		StartTime:     "09:00",
		EndTime:       "17:00",
		CorrelationID: "corr-1",
		Source:        queue.SourceAPI,
	})
	if err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}

	if got.BatchID != "b-1" || got.StartTime != "09:00" || got.EndTime != "17:00" || len(got.DriverIDs) != 1 {
		t.Fatalf("request = %+v", got)
	}
	if got.SkipIfGenerated {
		t.Fatal("api requests should always regenerate")
	}
	if correlationID != "corr-1" {
		t.Fatalf("correlation id = %q, want corr-1", correlationID)
	}
}

func TestGenerationWorkerSchedulerRequestsSkipGeneratedBatches(t *testing.T) {
	t.Parallel()

	generator := &fakeGenerator{
		generateWhenFreeFn: func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
			if !req.SkipIfGenerated {
				t.Fatal("scheduler requests should skip generated batches")
			}
			return &GenerateResult{Success: true, Skipped: true}, nil
		},
	}

	worker, _ := NewGenerationWorker(&fakeConsumer{}, generator, 1, nil)
	err := worker.processMessage(context.Background(), queue.GenerationRequestMessage{BatchID: "b-1", Source: queue.SourceScheduler})
	if err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
}

func TestGenerationWorkerClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantPermanent bool
	}{
		{name: "validation", err: fmt.Errorf("%w: no eligible drivers", domain.ErrValidation), wantPermanent: true},
		{name: "invalid geo", err: &routing.InvalidLocationError{OrderIDs: []string{"o1"}}, wantPermanent: true},
		{name: "not found", err: domain.ErrNotFound, wantPermanent: true},
		{name: "completed batch", err: fmt.Errorf("%w: batch is completed", domain.ErrConflict), wantPermanent: true},
		{name: "optimizer rejected request", err: fmt.Errorf("route optimization failed: %w", &optimizer.Error{StatusCode: 400}), wantPermanent: true},
		{name: "optimizer unavailable", err: fmt.Errorf("route optimization failed: %w", &optimizer.Error{StatusCode: 503, Transient: true}), wantPermanent: false},
		{name: "timeout", err: context.DeadlineExceeded, wantPermanent: false},
		{name: "storage", err: errors.New("connection reset"), wantPermanent: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			generator := &fakeGenerator{
				generateWhenFreeFn: func(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
					return nil, tt.err
				},
			}
			worker, _ := NewGenerationWorker(&fakeConsumer{}, generator, 1, nil)

			err := worker.processMessage(context.Background(), queue.GenerationRequestMessage{BatchID: "b-1", Source: queue.SourceAPI})
			if err == nil {
				t.Fatal("processMessage() expected error")
			}
			if got := queue.IsPermanent(err); got != tt.wantPermanent {
				t.Fatalf("IsPermanent() = %v, want %v (err = %v)", got, tt.wantPermanent, err)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("error chain lost cause: %v", err)
			}
		})
	}
}
