package repository

import (
	"context"
	"time"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.UserSession) error
	FindByID(ctx context.Context, id uint) (*models.UserSession, error)
	// End closes one active session. It reports false when the session was
	// already closed.
	End(ctx context.Context, id uint, now time.Time) (bool, error)
	EndAllForUser(ctx context.Context, userID uint, now time.Time) (int, error)
	ListActive(ctx context.Context) ([]models.UserSession, error)
	ListSince(ctx context.Context, from time.Time) ([]models.UserSession, error)
}

type gormSessions struct{ db *gorm.DB }

func (r *gormSessions) Create(ctx context.Context, s *models.UserSession) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormSessions) FindByID(ctx context.Context, id uint) (*models.UserSession, error) {
	var s models.UserSession
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormSessions) End(ctx context.Context, id uint, now time.Time) (bool, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !s.IsActive {
		return false, nil
	}
	return r.close(ctx, s, now)
}

func (r *gormSessions) EndAllForUser(ctx context.Context, userID uint, now time.Time) (int, error) {
	var active []models.UserSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&active).Error
	if err != nil {
		return 0, err
	}
	closed := 0
	for i := range active {
		ok, err := r.close(ctx, &active[i], now)
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

func (r *gormSessions) close(ctx context.Context, s *models.UserSession, now time.Time) (bool, error) {
	s.End(now)
	res := r.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND is_active = ?", s.ID, true).
		Updates(map[string]any{
			"is_active":        false,
			"logout_time":      s.LogoutTime,
			"session_duration": s.SessionDuration,
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormSessions) ListActive(ctx context.Context) ([]models.UserSession, error) {
	var out []models.UserSession
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ?", true).
		Order("login_time DESC").
		Find(&out).Error
	return out, err
}

func (r *gormSessions) ListSince(ctx context.Context, from time.Time) ([]models.UserSession, error) {
	var out []models.UserSession
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("login_time >= ?", from).
		Order("login_time").
		Find(&out).Error
	return out, err
}
