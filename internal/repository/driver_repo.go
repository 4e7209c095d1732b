package repository

import (
	"context"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"gorm.io/gorm"
)

type DriverRepository interface {
	// ListActive returns active drivers ordered by id. A non-empty ids
	// restricts the result to those drivers.
	ListActive(ctx context.Context, ids []string) ([]domain.Driver, error)
}

type GormDriverRepo struct {
	db *gorm.DB
}

func NewGormDriverRepo(db *gorm.DB) *GormDriverRepo {
	return &GormDriverRepo{db: db}
}

func (r *GormDriverRepo) ListActive(ctx context.Context, ids []string) ([]domain.Driver, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var models []DriverModel
	if err := query.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	drivers := make([]domain.Driver, 0, len(models))
	for i := range models {
		drivers = append(drivers, driverModelToDomain(&models[i]))
	}
	return drivers, nil
}
