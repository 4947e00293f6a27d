package repository

import (
	"context"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteCount struct {
	BeverageID uint  `json:"beverage_id"`
	Count      int64 `json:"favorite_count"`
}

type FavoriteRepository interface {
	// Add is idempotent: adding an existing favorite is not an error.
	Add(ctx context.Context, employeeID, beverageID uint) error
	Remove(ctx context.Context, employeeID, beverageID uint) (bool, error)
	Exists(ctx context.Context, employeeID, beverageID uint) (bool, error)
	ListByEmployee(ctx context.Context, employeeID uint) ([]models.Favorite, error)
	BeverageIDs(ctx context.Context, employeeID uint) ([]uint, error)
	Count(ctx context.Context, employeeID uint) (int64, error)
	MostFavorited(ctx context.Context, limit int) ([]FavoriteCount, error)
}

type gormFavorites struct{ db *gorm.DB }

func (r *gormFavorites) Add(ctx context.Context, employeeID, beverageID uint) error {
	fav := models.Favorite{EmployeeID: employeeID, BeverageID: beverageID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fav).Error
	return translate(err)
}

func (r *gormFavorites) Remove(ctx context.Context, employeeID, beverageID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("employee_id = ? AND beverage_id = ?", employeeID, beverageID).
		Delete(&models.Favorite{})
	return res.RowsAffected > 0, res.Error
}

func (r *gormFavorites) Exists(ctx context.Context, employeeID, beverageID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("employee_id = ? AND beverage_id = ?", employeeID, beverageID).
		Count(&n).Error
	return n > 0, err
}

func (r *gormFavorites) ListByEmployee(ctx context.Context, employeeID uint) ([]models.Favorite, error) {
	var out []models.Favorite
	err := r.db.WithContext(ctx).
		Preload("Beverage").
		Where("employee_id = ?", employeeID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *gormFavorites) BeverageIDs(ctx context.Context, employeeID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("employee_id = ?", employeeID).
		Order("beverage_id").
		Pluck("beverage_id", &ids).Error
	return ids, err
}

func (r *gormFavorites) Count(ctx context.Context, employeeID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("employee_id = ?", employeeID).
		Count(&n).Error
	return n, err
}

func (r *gormFavorites) MostFavorited(ctx context.Context, limit int) ([]FavoriteCount, error) {
	var out []FavoriteCount
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Select("beverage_id, COUNT(*) AS count").
		Group("beverage_id").
		Order("count DESC, beverage_id").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
