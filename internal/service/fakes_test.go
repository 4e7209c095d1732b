package service

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/lock"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
	"github.com/kursadbilgin/route-engine/internal/queue"
)

type fakeBatchRepo struct {
	getByIDFn            func(ctx context.Context, id string) (*domain.Batch, error)
	lockFn               func(ctx context.Context, id string, at time.Time) (*domain.Batch, error)
	completeFn           func(ctx context.Context, id string, at time.Time) (*domain.Batch, error)
	listAwaitingRoutesFn func(ctx context.Context, from time.Time, limit int) ([]domain.Batch, error)
}

func (f *fakeBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchRepo) Lock(ctx context.Context, id string, at time.Time) (*domain.Batch, error) {
	if f.lockFn != nil {
		return f.lockFn(ctx, id, at)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchRepo) Complete(ctx context.Context, id string, at time.Time) (*domain.Batch, error) {
	if f.completeFn != nil {
		return f.completeFn(ctx, id, at)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchRepo) ListAwaitingRoutes(ctx context.Context, from time.Time, limit int) ([]domain.Batch, error) {
	if f.listAwaitingRoutesFn != nil {
		return f.listAwaitingRoutesFn(ctx, from, limit)
	}
	return nil, nil
}

type fakeOrderRepo struct {
	listByIDsFn func(ctx context.Context, ids []string) ([]domain.Order, error)
}

func (f *fakeOrderRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	if f.listByIDsFn != nil {
		return f.listByIDsFn(ctx, ids)
	}
	return nil, nil
}

type fakeDriverRepo struct {
	listActiveFn func(ctx context.Context, ids []string) ([]domain.Driver, error)
}

func (f *fakeDriverRepo) ListActive(ctx context.Context, ids []string) ([]domain.Driver, error) {
	if f.listActiveFn != nil {
		return f.listActiveFn(ctx, ids)
	}
	return nil, nil
}

type fakeRouteRepo struct {
	replaceForBatchFn  func(ctx context.Context, batchID string, routes []domain.Route, at time.Time) error
	listByBatchFn      func(ctx context.Context, batchID string) ([]domain.Route, error)
	updateStopStatusFn func(ctx context.Context, stopID string, status domain.StopStatus) (*domain.Stop, error)
}

func (f *fakeRouteRepo) ReplaceForBatch(ctx context.Context, batchID string, routes []domain.Route, at time.Time) error {
	if f.replaceForBatchFn != nil {
		return f.replaceForBatchFn(ctx, batchID, routes, at)
	}
	return nil
}

func (f *fakeRouteRepo) ListByBatch(ctx context.Context, batchID string) ([]domain.Route, error) {
	if f.listByBatchFn != nil {
		return f.listByBatchFn(ctx, batchID)
	}
	return nil, nil
}

func (f *fakeRouteRepo) UpdateStopStatus(ctx context.Context, stopID string, status domain.StopStatus) (*domain.Stop, error) {
	if f.updateStopStatusFn != nil {
		return f.updateStopStatusFn(ctx, stopID, status)
	}
	return nil, domain.ErrNotFound
}

type fakeOptimizer struct {
	optimizeFn func(ctx context.Context, req *optimizer.Request) (*optimizer.Response, error)
}

func (f *fakeOptimizer) Optimize(ctx context.Context, req *optimizer.Request) (*optimizer.Response, error) {
	if f.optimizeFn != nil {
		return f.optimizeFn(ctx, req)
	}
	return &optimizer.Response{}, nil
}

type fakeLocker struct {
	acquireFn func(ctx context.Context, batchID string) (lock.Release, error)
	waitFn    func(ctx context.Context, batchID string) (lock.Release, error)
}

func (f *fakeLocker) Acquire(ctx context.Context, batchID string) (lock.Release, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx, batchID)
	}
	return func(context.Context) error { return nil }, nil
}

func (f *fakeLocker) Wait(ctx context.Context, batchID string) (lock.Release, error) {
	if f.waitFn != nil {
		return f.waitFn(ctx, batchID)
	}
	return func(context.Context) error { return nil }, nil
}

type fakePublisher struct {
	mu                         sync.Mutex
	publishGenerationRequestFn func(ctx context.Context, msg queue.GenerationRequestMessage) error
	publishRoutesGeneratedFn   func(ctx context.Context, evt queue.RoutesGeneratedEvent) error
}

func (f *fakePublisher) PublishGenerationRequest(ctx context.Context, msg queue.GenerationRequestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishGenerationRequestFn != nil {
		return f.publishGenerationRequestFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) PublishRoutesGenerated(ctx context.Context, evt queue.RoutesGeneratedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishRoutesGeneratedFn != nil {
		return f.publishRoutesGeneratedFn(ctx, evt)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeGenerator struct {
	generateWhenFreeFn func(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

func (f *fakeGenerator) GenerateWhenFree(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if f.generateWhenFreeFn != nil {
		return f.generateWhenFreeFn(ctx, req)
	}
	return &GenerateResult{Success: true, BatchID: req.BatchID}, nil
}
