package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

// Malformed ids are answered before any query, so a nil *gorm.DB is never touched.
func TestMalformedIDsAreNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	batches := NewGormBatchRepo(nil)
	routes := NewGormRouteRepo(nil)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	calls := map[string]func() error{
		"get batch": func() error {
			_, err := batches.GetByID(ctx, "b-1")
			return err
		},
		"lock batch": func() error {
			_, err := batches.Lock(ctx, "not-a-uuid", now)
			return err
		},
		"complete batch": func() error {
			_, err := batches.Complete(ctx, "", now)
			return err
		},
		"update stop": func() error {
			_, err := routes.UpdateStopStatus(ctx, "stop-1", domain.StopStatusDelivered)
			return err
		},
	}

	for name, call := range calls {
		call := call
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if err := call(); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStopModelFromDomainDefaultsToPending(t *testing.T) {
	t.Parallel()

	model := stopModelFromDomain(&domain.Stop{ID: "s", RouteID: "r", Sequence: 1})
	if model.Status != domain.StopStatusPending {
		t.Fatalf("status = %q, want pending", model.Status)
	}

	back := stopModelToDomain(model)
	if back.ID != "s" || back.RouteID != "r" || back.Sequence != 1 {
		t.Fatalf("round trip = %+v", back)
	}
	if stopModelFromDomain(nil) != nil || stopModelToDomain(nil) != nil {
		t.Fatal("nil stop should map to nil")
	}
}
