package repository

import (
	"context"

	"github.com/kursadbilgin/route-engine/internal/domain"
	"gorm.io/gorm"
)

type OrderRepository interface {
	// ListByIDs returns the orders that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error)
}

type GormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) *GormOrderRepo {
	return &GormOrderRepo{db: db}
}

func (r *GormOrderRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []OrderModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, orderModelToDomain(&models[i]))
	}
	return orders, nil
}
