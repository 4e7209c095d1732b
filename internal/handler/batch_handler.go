package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/routing"
	"github.com/kursadbilgin/route-engine/internal/service"
)

type BatchService interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error)
	EnqueueGeneration(ctx context.Context, req service.GenerateRequest) error
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)
	LockBatch(ctx context.Context, batchID string) (*domain.Batch, error)
	CompleteBatch(ctx context.Context, batchID string) (*domain.Batch, error)
	ListRoutes(ctx context.Context, batchID string) ([]domain.Route, error)
	UpdateStopStatus(ctx context.Context, stopID string, status string) (*domain.Stop, error)
}

type BatchHandler struct {
	service BatchService
}

func NewBatchHandler(service BatchService) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService) error {
	h, err := NewBatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/batches/:batchId", h.GetBatch)
	v1.Post("/batches/:batchId/lock", h.LockBatch)
	v1.Post("/batches/:batchId/complete", h.CompleteBatch)
	v1.Post("/batches/:batchId/routes/generate", h.GenerateRoutes)
	v1.Get("/batches/:batchId/routes", h.ListRoutes)
	v1.Patch("/stops/:stopId", h.UpdateStop)

	return nil
}

type generateRoutesRequest struct {
	DriverIDs []string `json:"driverIds"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

type generateRoutesResponse struct {
	Success       bool                     `json:"success"`
	BatchID       string                   `json:"batchId"`
	RoutesCreated int                      `json:"routesCreated"`
	RouteIDs      []string                 `json:"routeIds"`
	OrdersRouted  int                      `json:"ordersRouted"`
	Skipped       bool                     `json:"skipped,omitempty"`
	Fallback      *routing.FallbackSummary `json:"fallback,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
}

type queuedResponse struct {
	Success bool   `json:"success"`
	Queued  bool   `json:"queued"`
	BatchID string `json:"batchId"`
}

type updateStopRequest struct {
	Status string `json:"status"`
}

type batchResponse struct {
	ID                string     `json:"id"`
	DeliveryDate      string     `json:"deliveryDate"`
	Status            string     `json:"status"`
	WindowStart       *string    `json:"windowStart,omitempty"`
	WindowEnd         *string    `json:"windowEnd,omitempty"`
	OrderIDs          []string   `json:"orderIds"`
	RouteIDs          []string   `json:"routeIds"`
	LockedAt          *time.Time `json:"lockedAt,omitempty"`
	RoutesGeneratedAt *time.Time `json:"routesGeneratedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type routeResponse struct {
	ID              string         `json:"id"`
	BatchID         string         `json:"batchId"`
	DriverID        string         `json:"driverId"`
	Position        int            `json:"position"`
	StopCount       int            `json:"stopCount"`
	DistanceMeters  int64          `json:"distanceMeters"`
	DurationSeconds int64          `json:"durationSeconds"`
	Polyline        *string        `json:"polyline,omitempty"`
	Fallback        bool           `json:"fallback"`
	Stops           []stopResponse `json:"stops"`
}

type stopResponse struct {
	ID               string    `json:"id"`
	RouteID          string    `json:"routeId"`
	OrderID          string    `json:"orderId"`
	Sequence         int       `json:"sequence"`
	EstimatedArrival time.Time `json:"estimatedArrival"`
	Status           string    `json:"status"`
}

type listRoutesResponse struct {
	BatchID string          `json:"batchId"`
	Routes  []routeResponse `json:"routes"`
}

func (h *BatchHandler) GenerateRoutes(c *fiber.Ctx) error {
	var body generateRoutesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	req := service.GenerateRequest{
		BatchID:   c.Params("batchId"),
		DriverIDs: body.DriverIDs,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
	}

	if c.QueryBool("async", false) {
		if err := h.service.EnqueueGeneration(c.UserContext(), req); err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(queuedResponse{
			Success: true,
			Queued:  true,
			BatchID: req.BatchID,
		})
	}

	result, err := h.service.Generate(c.UserContext(), req)
	if err != nil {
		return err
	}

	routeIDs := result.RouteIDs
	if routeIDs == nil {
		routeIDs = []string{}
	}
	return c.Status(fiber.StatusOK).JSON(generateRoutesResponse{
		Success:       result.Success,
		BatchID:       result.BatchID,
		RoutesCreated: result.RoutesCreated,
		RouteIDs:      routeIDs,
		OrdersRouted:  result.OrdersRouted,
		Skipped:       result.Skipped,
		Fallback:      result.Fallback,
		Warnings:      result.Warnings,
	})
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	batch, err := h.service.GetBatch(c.UserContext(), c.Params("batchId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) LockBatch(c *fiber.Ctx) error {
	batch, err := h.service.LockBatch(c.UserContext(), c.Params("batchId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) CompleteBatch(c *fiber.Ctx) error {
	batch, err := h.service.CompleteBatch(c.UserContext(), c.Params("batchId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) ListRoutes(c *fiber.Ctx) error {
	batchID := c.Params("batchId")
	routes, err := h.service.ListRoutes(c.UserContext(), batchID)
	if err != nil {
		return err
	}

	items := make([]routeResponse, 0, len(routes))
	for i := range routes {
		items = append(items, toRouteResponse(&routes[i]))
	}
	return c.Status(fiber.StatusOK).JSON(listRoutesResponse{BatchID: batchID, Routes: items})
}

func (h *BatchHandler) UpdateStop(c *fiber.Ctx) error {
	var body updateStopRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	stop, err := h.service.UpdateStopStatus(c.UserContext(), c.Params("stopId"), body.Status)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toStopResponse(stop))
}

func toBatchResponse(b *domain.Batch) batchResponse {
	if b == nil {
		return batchResponse{}
	}

	resp := batchResponse{
		ID:                b.ID,
		DeliveryDate:      b.DeliveryDate.Format(time.DateOnly),
		Status:            b.Status.String(),
		WindowStart:       b.WindowStart,
		WindowEnd:         b.WindowEnd,
		OrderIDs:          b.OrderIDs,
		RouteIDs:          b.RouteIDs,
		LockedAt:          b.LockedAt,
		RoutesGeneratedAt: b.RoutesGeneratedAt,
		CompletedAt:       b.CompletedAt,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	if resp.OrderIDs == nil {
		resp.OrderIDs = []string{}
	}
	if resp.RouteIDs == nil {
		resp.RouteIDs = []string{}
	}
	return resp
}

func toRouteResponse(r *domain.Route) routeResponse {
	stops := make([]stopResponse, 0, len(r.Stops))
	for i := range r.Stops {
		stops = append(stops, toStopResponse(&r.Stops[i]))
	}

	return routeResponse{
		ID:              r.ID,
		BatchID:         r.BatchID,
		DriverID:        r.DriverID,
		Position:        r.Position,
		StopCount:       r.StopCount,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Polyline:        r.Polyline,
		Fallback:        r.Fallback,
		Stops:           stops,
	}
}

func toStopResponse(s *domain.Stop) stopResponse {
	if s == nil {
		return stopResponse{}
	}
	return stopResponse{
		ID:               s.ID,
		RouteID:          s.RouteID,
		OrderID:          s.OrderID,
		Sequence:         s.Sequence,
		EstimatedArrival: s.EstimatedArrival,
		Status:           s.Status.String(),
	}
}
