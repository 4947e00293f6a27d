// Package repository hides gorm behind per-entity interfaces.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Page selects a slice of a result set. A zero Page means "everything".
type Page struct {
	Page  int
	Limit int
}

func (p Page) Enabled() bool { return p.Page > 0 && p.Limit > 0 }

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if !p.Enabled() {
		return q
	}
	return q.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

// Store bundles every repository over one connection or transaction.
type Store struct {
	db *gorm.DB

	Users     UserRepository
	Beverages BeverageRepository
	Orders    OrderRepository
	Inventory InventoryRepository
	Sessions  SessionRepository
	Ratings   RatingRepository
	Favorites FavoriteRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Users:     &gormUsers{db: db},
		Beverages: &gormBeverages{db: db},
		Orders:    &gormOrders{db: db},
		Inventory: &gormInventory{db: db},
		Sessions:  &gormSessions{db: db},
		Ratings:   &gormRatings{db: db},
		Favorites: &gormFavorites{db: db},
	}
}

// WithTx runs fn against repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping reports whether the underlying database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
