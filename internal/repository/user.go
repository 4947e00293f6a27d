package repository

import (
	"context"
	"strings"

	"beverage-backend/internal/models"

	"gorm.io/gorm"
)

type UserFilter struct {
	Role   models.UserRole
	Search string
	Page   Page
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id uint, fields map[string]any) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// Taken reports whether username or email belongs to a user other than excludeID.
	Taken(ctx context.Context, username, email string, excludeID uint) (usernameTaken, emailTaken bool, err error)
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	ListActive(ctx context.Context, role models.UserRole) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type gormUsers struct{ db *gorm.DB }

func (r *gormUsers) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *gormUsers) Update(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) Taken(ctx context.Context, username, email string, excludeID uint) (bool, bool, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Where("username = ? OR email = ?", username, email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&users).Error; err != nil {
		return false, false, err
	}
	var uTaken, eTaken bool
	for _, u := range users {
		if username != "" && u.Username == username {
			uTaken = true
		}
		if email != "" && u.Email == email {
			eTaken = true
		}
	}
	return uTaken, eTaken, nil
}

func (r *gormUsers) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := f.Page.apply(q).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *gormUsers) ListActive(ctx context.Context, role models.UserRole) ([]models.User, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("full_name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *gormUsers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}
