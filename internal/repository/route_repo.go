package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RouteRepository interface {
	ReplaceForBatch(ctx context.Context, batchID string, routes []domain.Route, at time.Time) error
	ListByBatch(ctx context.Context, batchID string) ([]domain.Route, error)
	UpdateStopStatus(ctx context.Context, stopID string, status domain.StopStatus) (*domain.Stop, error)
}

type GormRouteRepo struct {
	db *gorm.DB
}

func NewGormRouteRepo(db *gorm.DB) *GormRouteRepo {
	return &GormRouteRepo{db: db}
}

// ReplaceForBatch swaps the batch's routes and stops for routes in a single
// transaction and marks the batch routes_generated. Nothing is written when
// any step fails.
func (r *GormRouteRepo) ReplaceForBatch(ctx context.Context, batchID string, routes []domain.Route, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch BatchModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&batch, "id = ?", batchID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if batch.Status == domain.BatchStatusCompleted {
			return fmt.Errorf("%w: batch is completed", domain.ErrConflict)
		}

		if err := tx.Where("batch_id = ?", batchID).Delete(&StopModel{}).Error; err != nil {
			return fmt.Errorf("delete stops: %w", err)
		}
		if err := tx.Where("batch_id = ?", batchID).Delete(&RouteModel{}).Error; err != nil {
			return fmt.Errorf("delete routes: %w", err)
		}

		routeModels := make([]RouteModel, 0, len(routes))
		var stopModels []StopModel
		routeIDs := make([]string, 0, len(routes))
		for i := range routes {
			routeModels = append(routeModels, *routeModelFromDomain(&routes[i]))
			routeIDs = append(routeIDs, routes[i].ID)
			for j := range routes[i].Stops {
				stopModels = append(stopModels, *stopModelFromDomain(&routes[i].Stops[j]))
			}
		}

		if len(routeModels) > 0 {
			if err := tx.CreateInBatches(&routeModels, 100).Error; err != nil {
				return fmt.Errorf("insert routes: %w", err)
			}
		}
		if len(stopModels) > 0 {
			if err := tx.CreateInBatches(&stopModels, 500).Error; err != nil {
				return fmt.Errorf("insert stops: %w", err)
			}
		}

		return tx.Model(&batch).
			Select("route_ids", "status", "routes_generated_at", "updated_at").
			Updates(&BatchModel{
				RouteIDs:          routeIDs,
				Status:            domain.BatchStatusRoutesGenerated,
				RoutesGeneratedAt: &at,
				UpdatedAt:         at,
			}).Error
	})
}

// ListByBatch returns the batch's routes by position, each with its stops by sequence.
func (r *GormRouteRepo) ListByBatch(ctx context.Context, batchID string) ([]domain.Route, error) {
	var routeModels []RouteModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("position ASC").
		Find(&routeModels).Error
	if err != nil {
		return nil, err
	}
	if len(routeModels) == 0 {
		return []domain.Route{}, nil
	}

	var stopModels []StopModel
	err = r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("route_id ASC, sequence ASC").
		Find(&stopModels).Error
	if err != nil {
		return nil, err
	}

	stopsByRoute := make(map[string][]domain.Stop, len(routeModels))
	for i := range stopModels {
		s := stopModelToDomain(&stopModels[i])
		stopsByRoute[s.RouteID] = append(stopsByRoute[s.RouteID], *s)
	}

	routes := make([]domain.Route, 0, len(routeModels))
	for i := range routeModels {
		route := routeModelToDomain(&routeModels[i])
		route.Stops = stopsByRoute[route.ID]
		routes = append(routes, *route)
	}
	return routes, nil
}

func (r *GormRouteRepo) UpdateStopStatus(ctx context.Context, stopID string, status domain.StopStatus) (*domain.Stop, error) {
	if !isUUID(stopID) {
		return nil, domain.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&StopModel{}).
		Where("id = ?", stopID).
		Update("status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	var model StopModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", stopID).Error; err != nil {
		return nil, err
	}
	return stopModelToDomain(&model), nil
}
