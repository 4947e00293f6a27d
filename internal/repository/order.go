package repository

import (
	"context"
	"time"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
)

type OrderFilter struct {
	Status     models.OrderStatus
	Statuses   []models.OrderStatus
	EmployeeID uint
	BeverageID uint
	From       *time.Time // inclusive, on order_date
	To         *time.Time // exclusive
	Page       Page
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	// CountActiveForDay counts pending and fulfilled orders in [from, to).
	CountActiveForDay(ctx context.Context, employeeID uint, from, to time.Time) (int64, error)
	// TransitionStatus moves a pending order to the target status. It reports
	// false when the order was no longer pending.
	TransitionStatus(ctx context.Context, id uint, to models.OrderStatus, actorID uint, at time.Time) (bool, error)
}

type gormOrders struct{ db *gorm.DB }

func (r *gormOrders) Create(ctx context.Context, o *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r *gormOrders) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Beverage").
		First(&o, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *gormOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.EmployeeID != 0 {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.BeverageID != 0 {
		q = q.Where("beverage_id = ?", f.BeverageID)
	}
	if f.From != nil {
		q = q.Where("order_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("order_date < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := f.Page.apply(q).
		Preload("Employee").
		Preload("Beverage").
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *gormOrders) CountActiveForDay(ctx context.Context, employeeID uint, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("employee_id = ? AND order_date >= ? AND order_date < ?", employeeID, from, to).
		Where("status IN ?", models.ActiveOrderStatuses).
		Count(&n).Error
	return n, err
}

func (r *gormOrders) TransitionStatus(ctx context.Context, id uint, to models.OrderStatus, actorID uint, at time.Time) (bool, error) {
	fields := map[string]any{"status": to, "updated_at": at}
	switch to {
	case models.OrderFulfilled:
		fields["fulfilled_by"] = actorID
		fields["fulfilled_at"] = at
	case models.OrderCancelled:
		fields["cancelled_by"] = actorID
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderPending).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
