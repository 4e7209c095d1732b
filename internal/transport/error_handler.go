package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/route-engine/internal/domain"
	"github.com/kursadbilgin/route-engine/internal/observability"
	"go.uber.org/zap"
)

// FailureResponse is the body of every unsuccessful API call.
type FailureResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	InvalidGeoOrders []string `json:"invalidGeoOrders,omitempty"`
}

// GeoError is implemented by errors that name orders with unusable coordinates.
type GeoError interface {
	error
	InvalidOrderIDs() []string
}

// StatusFromError maps domain sentinels to HTTP status codes.
func StatusFromError(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code := StatusFromError(err)

		body := FailureResponse{Message: err.Error()}
		var geoErr GeoError
		if errors.As(err, &geoErr) {
			body.InvalidGeoOrders = geoErr.InvalidOrderIDs()
		}

		log := observability.WithContextLogger(logger, c.UserContext())
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request error", fields...)
		} else {
			log.Warn("request rejected", fields...)
		}

		// Unclassified failures may carry driver or SQL detail.
		if code == fiber.StatusInternalServerError {
			var fiberErr *fiber.Error
			if !errors.As(err, &fiberErr) {
				body.Message = "internal server error"
			}
		}

		return c.Status(code).JSON(body)
	}
}
