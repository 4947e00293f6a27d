// Package favorite keeps each employee's favorite beverages.
package favorite

import (
	"context"
	"errors"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

const defaultMostLimit = 10

type Request struct {
	BeverageID uint `json:"beverage_id" validate:"required"`
}

type View struct {
	ID         uint             `json:"id"`
	BeverageID uint             `json:"beverage_id"`
	Beverage   *models.Beverage `json:"beverage,omitempty"`
	CreatedAt  string           `json:"created_at"`
}

type ToggleResult struct {
	IsFavorite bool                `json:"is_favorite"`
	Beverage   *models.BeverageRef `json:"beverage"`
}

type Popular struct {
	Beverage      models.BeverageRef `json:"beverage"`
	FavoriteCount int64              `json:"favorite_count"`
}

type Service struct {
	store *repository.Store
	log   logrus.FieldLogger
}

func NewService(store *repository.Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) beverage(ctx context.Context, id uint) (*models.Beverage, error) {
	b, err := s.store.Beverages.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Beverage not found")
	}
	return b, err
}

// Toggle flips membership: a favorite is removed, anything else is added.
func (s *Service) Toggle(ctx context.Context, employeeID, beverageID uint) (*ToggleResult, error) {
	b, err := s.beverage(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	res := &ToggleResult{Beverage: b.Ref()}
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		removed, err := tx.Favorites.Remove(ctx, employeeID, beverageID)
		if err != nil || removed {
			return err
		}
		res.IsFavorite = true
		return tx.Favorites.Add(ctx, employeeID, beverageID)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"employee_id": employeeID, "beverage_id": beverageID, "favorite": res.IsFavorite}).Debug("favorite toggled")
	return res, nil
}

// Add is idempotent.
func (s *Service) Add(ctx context.Context, employeeID, beverageID uint) (*ToggleResult, error) {
	b, err := s.beverage(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Favorites.Add(ctx, employeeID, beverageID); err != nil {
		return nil, err
	}
	return &ToggleResult{IsFavorite: true, Beverage: b.Ref()}, nil
}

func (s *Service) Remove(ctx context.Context, employeeID, beverageID uint) error {
	ok, err := s.store.Favorites.Remove(ctx, employeeID, beverageID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("Favorite not found")
	}
	return nil
}

func (s *Service) List(ctx context.Context, employeeID uint) ([]View, error) {
	favs, err := s.store.Favorites.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(favs))
	for _, f := range favs {
		out = append(out, View{
			ID:         f.ID,
			BeverageID: f.BeverageID,
			Beverage:   f.Beverage,
			CreatedAt:  f.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return out, nil
}

func (s *Service) IsFavorite(ctx context.Context, employeeID, beverageID uint) (bool, error) {
	return s.store.Favorites.Exists(ctx, employeeID, beverageID)
}

func (s *Service) BeverageIDs(ctx context.Context, employeeID uint) ([]uint, error) {
	return s.store.Favorites.BeverageIDs(ctx, employeeID)
}

func (s *Service) Count(ctx context.Context, employeeID uint) (int64, error) {
	return s.store.Favorites.Count(ctx, employeeID)
}

func (s *Service) MostFavorited(ctx context.Context, limit int) ([]Popular, error) {
	if limit <= 0 {
		limit = defaultMostLimit
	}
	counts, err := s.store.Favorites.MostFavorited(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Popular, 0, len(counts))
	for _, c := range counts {
		b, err := s.store.Beverages.FindByID(ctx, c.BeverageID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Popular{Beverage: *b.Ref(), FavoriteCount: c.Count})
	}
	return out, nil
}
