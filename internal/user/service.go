// Package user implements admin user management.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

type CreateRequest struct {
	Username      string          `json:"username" validate:"required,min=3,max=50"`
	Password      string          `json:"password" validate:"required,min=6"`
	FullName      string          `json:"full_name" validate:"required,max=100"`
	Email         string          `json:"email" validate:"required,email,max=100"`
	Role          models.UserRole `json:"role" validate:"omitempty,oneof=admin employee office_boy"`
	Department    *string         `json:"department" validate:"omitempty,max=100"`
	WorkStartTime *string         `json:"work_start_time" validate:"omitempty,clock"`
	WorkEndTime   *string         `json:"work_end_time" validate:"omitempty,clock"`
}

type UpdateRequest struct {
	Username      *string          `json:"username" validate:"omitempty,min=3,max=50"`
	Password      *string          `json:"password" validate:"omitempty,min=6"`
	FullName      *string          `json:"full_name" validate:"omitempty,min=1,max=100"`
	Email         *string          `json:"email" validate:"omitempty,email,max=100"`
	Role          *models.UserRole `json:"role" validate:"omitempty,oneof=admin employee office_boy"`
	Department    *string          `json:"department" validate:"omitempty,max=100"`
	WorkStartTime *string          `json:"work_start_time" validate:"omitempty,clock"`
	WorkEndTime   *string          `json:"work_end_time" validate:"omitempty,clock"`
	IsActive      *bool            `json:"is_active"`
}

type Service struct {
	store *repository.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store *repository.Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, f repository.UserFilter) ([]models.User, int64, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, 0, apperror.Validation("Invalid role")
	}
	return s.store.Users.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.store.Users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("User not found")
	}
	return u, err
}

func (s *Service) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
	uTaken, eTaken, err := s.store.Users.Taken(ctx, username, email, excludeID)
	if err != nil {
		return err
	}
	if uTaken {
		return apperror.Conflict("Username already exists")
	}
	if eTaken {
		return apperror.Conflict("Email already exists")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkUnique(ctx, username, email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Wrap(err, "Password could not be hashed")
	}
	role := req.Role
	if role == "" {
		role = models.RoleEmployee
	}

	u := &models.User{
		Username:      username,
		PasswordHash:  hash,
		FullName:      strings.TrimSpace(req.FullName),
		Email:         email,
		Department:    trimmed(req.Department),
		Role:          role,
		IsActive:      true,
		WorkStartTime: req.WorkStartTime,
		WorkEndTime:   req.WorkEndTime,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Username or email already exists")
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user created")
	return u, nil
}

func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	username, email := "", ""
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
		fields["username"] = username
	}
	if req.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*req.Email))
		fields["email"] = email
	}
	if username != "" || email != "" {
		if err := s.checkUnique(ctx, username, email, id); err != nil {
			return nil, err
		}
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, apperror.Wrap(err, "Password could not be hashed")
		}
		fields["password_hash"] = hash
	}
	if req.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}
	if req.Department != nil {
		fields["department"] = trimmed(req.Department)
	}
	if req.WorkStartTime != nil {
		fields["work_start_time"] = req.WorkStartTime
	}
	if req.WorkEndTime != nil {
		fields["work_end_time"] = req.WorkEndTime
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return current, nil
	}
	fields["updated_at"] = s.now()

	if err := s.store.Users.Update(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Username or email already exists")
		}
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive {
		if _, err := s.store.Sessions.EndAllForUser(ctx, id, s.now()); err != nil {
			return nil, err
		}
	}
	s.log.WithField("user_id", id).Info("user updated")
	return s.Get(ctx, id)
}

// Deactivate disables the account and closes its open sessions. Accounts
// are never hard-deleted because orders and audit rows reference them.
func (s *Service) Deactivate(ctx context.Context, id, actorID uint) error {
	if id == actorID {
		return apperror.Validation("You cannot deactivate your own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	now := s.now()
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Users.Update(ctx, id, map[string]any{"is_active": false, "updated_at": now}); err != nil {
			return err
		}
		_, err := tx.Sessions.EndAllForUser(ctx, id, now)
		return err
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "actor_id": actorID}).Info("user deactivated")
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
