package repository

import (
	"context"
	"time"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
)

type InventoryFilter struct {
	BeverageID uint
	Type       models.TransactionType
	From       *time.Time
	To         *time.Time
	Page       Page
}

type InventoryRepository interface {
	Record(ctx context.Context, tx *models.InventoryTransaction) error
	List(ctx context.Context, f InventoryFilter) ([]models.InventoryTransaction, int64, error)
}

type gormInventory struct{ db *gorm.DB }

func (r *gormInventory) Record(ctx context.Context, tx *models.InventoryTransaction) error {
	return translate(r.db.WithContext(ctx).Create(tx).Error)
}

func (r *gormInventory) List(ctx context.Context, f InventoryFilter) ([]models.InventoryTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryTransaction{})
	if f.BeverageID != 0 {
		q = q.Where("beverage_id = ?", f.BeverageID)
	}
	if f.Type != "" {
		q = q.Where("transaction_type = ?", f.Type)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.InventoryTransaction
	err := f.Page.apply(q).
		Preload("Beverage").
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
