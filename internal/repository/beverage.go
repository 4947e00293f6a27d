package repository

import (
	"context"
	"strings"
	"time"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
)

type BeverageFilter struct {
	Category      models.BeverageCategory
	CaffeineLevel models.CaffeineLevel
	ActiveOnly    bool
	StockStatus   models.StockStatus
	Search        string
	Page          Page
}

type BeverageRepository interface {
	Create(ctx context.Context, b *models.Beverage) error
	Update(ctx context.Context, id uint, fields map[string]any) error
	FindByID(ctx context.Context, id uint) (*models.Beverage, error)
	List(ctx context.Context, f BeverageFilter) ([]models.Beverage, int64, error)
	// AdjustStock adds delta to the stock, clamping at zero, and returns the
	// quantities before and after the change.
	AdjustStock(ctx context.Context, id uint, delta int) (before, after int, err error)
}

type gormBeverages struct{ db *gorm.DB }

func (r *gormBeverages) Create(ctx context.Context, b *models.Beverage) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *gormBeverages) Update(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Beverage{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormBeverages) FindByID(ctx context.Context, id uint) (*models.Beverage, error) {
	var b models.Beverage
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *gormBeverages) List(ctx context.Context, f BeverageFilter) ([]models.Beverage, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Beverage{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.CaffeineLevel != "" {
		q = q.Where("caffeine_level = ?", f.CaffeineLevel)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	switch f.StockStatus {
	case models.StockOut:
		q = q.Where("stock_quantity = 0")
	case models.StockLow:
		q = q.Where("stock_quantity > 0 AND stock_quantity <= min_stock_alert")
	case models.StockIn:
		q = q.Where("stock_quantity > min_stock_alert")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Beverage
	if err := f.Page.apply(q).Order("category, name").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *gormBeverages) AdjustStock(ctx context.Context, id uint, delta int) (int, int, error) {
	db := r.db.WithContext(ctx)

	var b models.Beverage
	if err := db.Select("id", "stock_quantity").First(&b, id).Error; err != nil {
		return 0, 0, translate(err)
	}
	before := b.StockQuantity

	// Single statement so concurrent adjustments cannot drive the stock below zero.
	res := db.Model(&models.Beverage{}).Where("id = ?", id).Updates(map[string]any{
		"stock_quantity": gorm.Expr("CASE WHEN stock_quantity + ? < 0 THEN 0 ELSE stock_quantity + ? END", delta, delta),
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, 0, ErrNotFound
	}

	if err := db.Select("id", "stock_quantity").First(&b, id).Error; err != nil {
		return 0, 0, translate(err)
	}
	return before, b.StockQuantity, nil
}
