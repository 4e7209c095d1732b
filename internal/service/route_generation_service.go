package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/lock"
	"github.com/kursadbilgin/route-engine/internal/observability"
	"github.com/kursadbilgin/route-engine/internal/optimizer"
	"github.com/kursadbilgin/route-engine/internal/queue"
	"github.com/kursadbilgin/route-engine/internal/repository"
	"github.com/kursadbilgin/route-engine/internal/routing"
	"go.uber.org/zap"
)

// GenerationSettings are the deployment-level inputs of a generation run.
type GenerationSettings struct {
	DepotLat string
	DepotLng string
	Location *time.Location
	Timeout  time.Duration
}

type GenerateRequest struct {
	BatchID   string
	DriverIDs []string
	StartTime string
	EndTime   string
	Source    queue.Source
	// SkipIfGenerated turns the run into a no-op when the batch already has routes.
	SkipIfGenerated bool
}

type GenerateResult struct {
	Success       bool
	Skipped       bool
	BatchID       string
	RoutesCreated int
	RouteIDs      []string
	OrdersRouted  int
	Fallback      *routing.FallbackSummary
	Warnings      []string
}

// RouteGenerationService orchestrates one batch's route generation: load and
// validate inputs, call the optimizer, repair its answer and persist the
// result atomically.
type RouteGenerationService struct {
	batches   repository.BatchRepository
	orders    repository.OrderRepository
	drivers   repository.DriverRepository
	routes    repository.RouteRepository
	optimizer optimizer.Optimizer
	locker    lock.Locker
	publisher queue.Publisher
	settings  GenerationSettings
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

func NewRouteGenerationService(
	batches repository.BatchRepository,
	orders repository.OrderRepository,
	drivers repository.DriverRepository,
	routes repository.RouteRepository,
	opt optimizer.Optimizer,
	settings GenerationSettings,
	logger *zap.Logger,
) (*RouteGenerationService, error) {
	if batches == nil || orders == nil || drivers == nil || routes == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if opt == nil {
		return nil, fmt.Errorf("optimizer is required")
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RouteGenerationService{
		batches:   batches,
		orders:    orders,
		drivers:   drivers,
		routes:    routes,
		optimizer: opt,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func (s *RouteGenerationService) SetLocker(locker lock.Locker) {
	if s == nil {
		return
	}
	s.locker = locker
}

func (s *RouteGenerationService) SetPublisher(publisher queue.Publisher) {
	if s == nil {
		return
	}
	s.publisher = publisher
}

func (s *RouteGenerationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Generate runs route generation for a batch, failing fast with
// domain.ErrConflict when another run holds the batch.
func (s *RouteGenerationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return s.generate(ctx, req, s.acquire)
}

// GenerateWhenFree is Generate for queued work: it waits for a concurrent
// run on the same batch to finish instead of failing.
func (s *RouteGenerationService) GenerateWhenFree(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return s.generate(ctx, req, s.wait)
}

type acquireFunc func(ctx context.Context, batchID string) (lock.Release, error)

func (s *RouteGenerationService) acquire(ctx context.Context, batchID string) (lock.Release, error) {
	if s.locker == nil {
		return nil, nil
	}
	return s.locker.Acquire(ctx, batchID)
}

func (s *RouteGenerationService) wait(ctx context.Context, batchID string) (lock.Release, error) {
	if s.locker == nil {
		return nil, nil
	}
	return s.locker.Wait(ctx, batchID)
}

func (s *RouteGenerationService) generate(ctx context.Context, req GenerateRequest, acquire acquireFunc) (result *GenerateResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	start := s.now()
	source := req.Source
	if source == "" {
		source = queue.SourceAPI
	}
	defer func() {
		s.metrics.ObserveGeneration(string(source), generationOutcome(err), s.now().Sub(start))
	}()

	req.BatchID = strings.TrimSpace(req.BatchID)
	logger := observability.BatchLogger(s.logger, ctx, req.BatchID).With(zap.String("source", string(source)))

	depot, err := domain.ParseDepot(s.settings.DepotLat, s.settings.DepotLng)
	if err != nil {
		return nil, err
	}
	if req.BatchID == "" {
		return nil, fmt.Errorf("%w: batchId is required", domain.ErrValidation)
	}

	release, err := acquire(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer func() {
			// The run's context may already be done; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if releaseErr := release(releaseCtx); releaseErr != nil {
				logger.Warn("failed to release batch lock", zap.Error(releaseErr))
			}
		}()
	}

	batch, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if req.SkipIfGenerated && (batch.Status != domain.BatchStatusLocked || batch.RoutesGeneratedAt != nil) {
		logger.Info("skipping generation, batch already has routes or is not locked",
			zap.String("status", batch.Status.String()),
		)
		return &GenerateResult{Success: true, Skipped: true, BatchID: batch.ID, RouteIDs: batch.RouteIDs, RoutesCreated: len(batch.RouteIDs)}, nil
	}

	orders, err := s.loadOrders(ctx, batch)
	if err != nil {
		return nil, err
	}

	groups, err := routing.GroupOrders(orders)
	if err != nil {
		return nil, err
	}

	window, err := routing.ResolveWindow(routing.WindowInput{
		Date:          batch.DeliveryDay(s.settings.Location),
		Location:      s.settings.Location,
		ExplicitStart: req.StartTime,
		ExplicitEnd:   req.EndTime,
		BatchStart:    batch.WindowStart,
		BatchEnd:      batch.WindowEnd,
	})
	if err != nil {
		return nil, err
	}

	drivers, err := s.eligibleDrivers(ctx, req.DriverIDs)
	if err != nil {
		return nil, err
	}

	optReq, err := routing.BuildRequest(routing.BuildInput{
		Groups:  groups,
		Drivers: drivers,
		Depot:   depot,
		Window:  window,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("calling route optimizer",
		zap.Int("orders", len(orders)),
		zap.Int("visitGroups", len(groups)),
		zap.Int("drivers", len(drivers)),
		zap.Time("windowStart", window.Start),
		zap.Time("windowEnd", window.End),
	)

	callStart := s.now()
	solution, err := s.optimizer.Optimize(ctx, optReq)
	s.metrics.ObserveOptimizerRequest(optimizerOutcome(err), s.now().Sub(callStart))
	if err != nil {
		logger.Error("route optimizer call failed",
			zap.Bool("transient", optimizer.IsTransient(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("route optimization failed: %w", err)
	}

	interp := routing.Interpret(routing.InterpretInput{
		Groups:   groups,
		Drivers:  drivers,
		Window:   window,
		Solution: solution,
	})
	for _, w := range interp.Warnings {
		logger.Warn("optimizer solution anomaly", zap.String("detail", w))
	}

	var skipped []optimizer.SkippedShipment
	if solution != nil {
		skipped = solution.SkippedShipments
	}
	placed, err := routing.AssignFallback(routing.FallbackInput{
		Routes:    interp.Routes,
		Groups:    groups,
		Uncovered: interp.Uncovered,
		Drivers:   drivers,
		Window:    window,
		Skipped:   skipped,
	})
	if err != nil {
		return nil, err
	}

	if err := routing.CheckPlan(groups, placed.Routes); err != nil {
		return nil, fmt.Errorf("generated plan is inconsistent: %w", err)
	}

	generatedAt := s.now().UTC()
	routes := s.materialize(batch.ID, placed.Routes, generatedAt)
	if err := s.routes.ReplaceForBatch(ctx, batch.ID, routes, generatedAt); err != nil {
		return nil, fmt.Errorf("failed to persist routes: %w", err)
	}

	result = &GenerateResult{
		Success:       true,
		BatchID:       batch.ID,
		RoutesCreated: len(routes),
		RouteIDs:      make([]string, 0, len(routes)),
		OrdersRouted:  len(orders),
		Fallback:      placed.Summary,
		Warnings:      interp.Warnings,
	}
	for _, r := range routes {
		result.RouteIDs = append(result.RouteIDs, r.ID)
	}

	s.metrics.AddRoutesCreated(result.RoutesCreated)
	if placed.Summary != nil {
		s.metrics.AddFallbackOrders(placed.Summary.Mode.String(), placed.Summary.OrdersPlaced)
		logger.Warn("optimizer left orders unassigned, placed by fallback",
			zap.String("mode", placed.Summary.Mode.String()),
			zap.Int("ordersPlaced", placed.Summary.OrdersPlaced),
		)
	}

	logger.Info("routes generated",
		zap.Int("routesCreated", result.RoutesCreated),
		zap.Int("ordersRouted", result.OrdersRouted),
	)

	s.publishGenerated(ctx, logger, result, generatedAt)

	return result, nil
}

func (s *RouteGenerationService) loadBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: batch %q", domain.ErrNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if batch.Status == domain.BatchStatusCompleted {
		return nil, fmt.Errorf("%w: batch %q is completed and its routes can no longer change", domain.ErrConflict, batchID)
	}
	return batch, nil
}

// loadOrders returns the batch's orders in batch order. Every reference must
// resolve; a repeated reference is routed once.
func (s *RouteGenerationService) loadOrders(ctx context.Context, batch *domain.Batch) ([]domain.Order, error) {
	ids := uniqueIDs(batch.OrderIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: batch has no orders to route", domain.ErrValidation)
	}

	found, err := s.orders.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	byID := make(map[string]domain.Order, len(found))
	for _, o := range found {
		byID[o.ID] = o
	}

	orders := make([]domain.Order, 0, len(ids))
	var missing []string
	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		orders = append(orders, o)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: batch references unknown orders: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}

	return orders, nil
}

// eligibleDrivers returns assignable drivers in directory order, or in the
// caller's order when ids are given.
func (s *RouteGenerationService) eligibleDrivers(ctx context.Context, ids []string) ([]domain.Driver, error) {
	ids = uniqueIDs(ids)

	candidates, err := s.drivers.ListActive(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load drivers: %w", err)
	}

	eligible := make(map[string]domain.Driver, len(candidates))
	ordered := make([]domain.Driver, 0, len(candidates))
	for _, d := range candidates {
		if !d.Eligible() {
			continue
		}
		eligible[d.ID] = d
		ordered = append(ordered, d)
	}

	if len(ids) > 0 {
		ordered = ordered[:0]
		for _, id := range ids {
			if d, ok := eligible[id]; ok {
				ordered = append(ordered, d)
			}
		}
	}

	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: no eligible drivers", domain.ErrValidation)
	}
	return ordered, nil
}

func (s *RouteGenerationService) materialize(batchID string, planned []*routing.PlannedRoute, at time.Time) []domain.Route {
	routes := make([]domain.Route, 0, len(planned))
	for i, p := range planned {
		route := domain.Route{
			ID:              s.newID(),
			BatchID:         batchID,
			DriverID:        p.DriverID,
			Position:        i + 1,
			StopCount:       p.StopCount(),
			DistanceMeters:  p.DistanceMeters,
			DurationSeconds: p.DurationSeconds,
			Polyline:        p.Polyline,
			Fallback:        p.Fallback,
			CreatedAt:       at,
			UpdatedAt:       at,
		}

		route.Stops = make([]domain.Stop, 0, len(p.Stops))
		for _, ps := range p.Stops {
			route.Stops = append(route.Stops, domain.Stop{
				ID:               s.newID(),
				RouteID:          route.ID,
				BatchID:          batchID,
				OrderID:          ps.OrderID,
				Sequence:         ps.Sequence,
				EstimatedArrival: ps.EstimatedArrival.UTC(),
				Status:           domain.StopStatusPending,
				CreatedAt:        at,
				UpdatedAt:        at,
			})
		}
		routes = append(routes, route)
	}
	return routes
}

// publishGenerated announces a committed run. The routes are already
// persisted, so a publish failure is only logged.
func (s *RouteGenerationService) publishGenerated(ctx context.Context, logger *zap.Logger, result *GenerateResult, at time.Time) {
	if s.publisher == nil {
		return
	}

	evt := queue.RoutesGeneratedEvent{
		BatchID:       result.BatchID,
		RouteIDs:      result.RouteIDs,
		RoutesCreated: result.RoutesCreated,
		OrdersRouted:  result.OrdersRouted,
		GeneratedAt:   at,
	}
	if result.Fallback != nil {
		evt.FallbackMode = result.Fallback.Mode.String()
	}
	if correlationID, ok := observability.CorrelationIDFromContext(ctx); ok {
		evt.CorrelationID = correlationID
	}

	if err := s.publisher.PublishRoutesGenerated(context.WithoutCancel(ctx), evt); err != nil {
		logger.Warn("failed to publish routes generated event", zap.Error(err))
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func generationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func optimizerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case optimizer.IsTransient(err):
		return "transient_error"
	default:
		return "error"
	}
}
