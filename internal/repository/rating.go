package repository

import (
	"context"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingAggregate summarizes the ratings of one beverage.
type RatingAggregate struct {
	BeverageID uint    `json:"beverage_id"`
	Average    float64 `json:"average_rating"`
	Count      int64   `json:"total_ratings"`
}

// RatingStats summarizes every rating in the system.
type RatingStats struct {
	Total   int64   `json:"total_ratings"`
	Average float64 `json:"average_rating"`
	Highest int     `json:"highest_rating"`
	Lowest  int     `json:"lowest_rating"`
}

type RatingRepository interface {
	// Upsert inserts the rating or overwrites the existing one for the same
	// employee and beverage.
	Upsert(ctx context.Context, r *models.Rating) error
	Find(ctx context.Context, employeeID, beverageID uint) (*models.Rating, error)
	Delete(ctx context.Context, employeeID, beverageID uint) (bool, error)
	ListByBeverage(ctx context.Context, beverageID uint) ([]models.Rating, error)
	ListByEmployee(ctx context.Context, employeeID uint) ([]models.Rating, error)
	Aggregate(ctx context.Context, beverageID uint) (RatingAggregate, error)
	AggregateAll(ctx context.Context) ([]RatingAggregate, error)
	Distribution(ctx context.Context, beverageID uint) (map[int]int64, error)
	Stats(ctx context.Context) (RatingStats, error)
}

type gormRatings struct{ db *gorm.DB }

func (r *gormRatings) Upsert(ctx context.Context, rating *models.Rating) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}, {Name: "beverage_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "review", "is_anonymous", "updated_at"}),
	}).Create(rating).Error
	if err != nil {
		return translate(err)
	}
	stored, err := r.Find(ctx, rating.EmployeeID, rating.BeverageID)
	if err != nil {
		return err
	}
	*rating = *stored
	return nil
}

func (r *gormRatings) Find(ctx context.Context, employeeID, beverageID uint) (*models.Rating, error) {
	var out models.Rating
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND beverage_id = ?", employeeID, beverageID).
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *gormRatings) Delete(ctx context.Context, employeeID, beverageID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("employee_id = ? AND beverage_id = ?", employeeID, beverageID).
		Delete(&models.Rating{})
	return res.RowsAffected > 0, res.Error
}

func (r *gormRatings) ListByBeverage(ctx context.Context, beverageID uint) ([]models.Rating, error) {
	var out []models.Rating
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Where("beverage_id = ?", beverageID).
		Order("updated_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRatings) ListByEmployee(ctx context.Context, employeeID uint) ([]models.Rating, error) {
	var out []models.Rating
	err := r.db.WithContext(ctx).
		Preload("Beverage").
		Where("employee_id = ?", employeeID).
		Order("updated_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRatings) Aggregate(ctx context.Context, beverageID uint) (RatingAggregate, error) {
	agg := RatingAggregate{BeverageID: beverageID}
	err := r.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("beverage_id = ?", beverageID).
		Row().Scan(&agg.Average, &agg.Count)
	return agg, err
}

func (r *gormRatings) AggregateAll(ctx context.Context) ([]RatingAggregate, error) {
	var out []RatingAggregate
	err := r.db.WithContext(ctx).Model(&models.Rating{}).
		Select("beverage_id, AVG(rating) AS average, COUNT(*) AS count").
		Group("beverage_id").
		Scan(&out).Error
	return out, err
}

func (r *gormRatings) Distribution(ctx context.Context, beverageID uint) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Rating{}).
		Select("rating, COUNT(*) AS count").
		Where("beverage_id = ?", beverageID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	dist := make(map[int]int64, models.MaxRating)
	for i := models.MinRating; i <= models.MaxRating; i++ {
		dist[i] = 0
	}
	for _, row := range rows {
		dist[row.Rating] = row.Count
	}
	return dist, nil
}

func (r *gormRatings) Stats(ctx context.Context) (RatingStats, error) {
	var st RatingStats
	err := r.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COUNT(*), COALESCE(AVG(rating), 0), COALESCE(MAX(rating), 0), COALESCE(MIN(rating), 0)").
		Row().Scan(&st.Total, &st.Average, &st.Highest, &st.Lowest)
	return st, err
}
