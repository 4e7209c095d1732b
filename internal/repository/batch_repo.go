package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"gorm.io/gorm"
)

type BatchRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	Lock(ctx context.Context, id string, at time.Time) (*domain.Batch, error)
	Complete(ctx context.Context, id string, at time.Time) (*domain.Batch, error)
	ListAwaitingRoutes(ctx context.Context, from time.Time, limit int) ([]domain.Batch, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}

	var model BatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchModelToDomain(&model), nil
}

func (r *GormBatchRepo) Lock(ctx context.Context, id string, at time.Time) (*domain.Batch, error) {
	return r.transition(ctx, id, domain.BatchStatusCollecting, domain.BatchStatusLocked, "locked_at", at)
}

func (r *GormBatchRepo) Complete(ctx context.Context, id string, at time.Time) (*domain.Batch, error) {
	return r.transition(ctx, id, domain.BatchStatusRoutesGenerated, domain.BatchStatusCompleted, "completed_at", at)
}

// ListAwaitingRoutes returns locked batches delivering on or after from that
// have no routes yet, earliest delivery first.
func (r *GormBatchRepo) ListAwaitingRoutes(ctx context.Context, from time.Time, limit int) ([]domain.Batch, error) {
	var models []BatchModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND delivery_date >= ? AND routes_generated_at IS NULL", domain.BatchStatusLocked, from.Format(time.DateOnly)).
		Order("delivery_date ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	batches := make([]domain.Batch, 0, len(models))
	for i := range models {
		batches = append(batches, *batchModelToDomain(&models[i]))
	}
	return batches, nil
}

func (r *GormBatchRepo) transition(ctx context.Context, id string, from, to domain.BatchStatus, stampColumn string, at time.Time) (*domain.Batch, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":    to,
			stampColumn: at,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	batch, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: batch is %s, expected %s", domain.ErrConflict, batch.Status, from)
	}
	return batch, nil
}
