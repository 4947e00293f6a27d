// Package beverage manages the catalog and its stock.
package beverage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/audit"
	"beverage-backend/internal/events"
	"beverage-backend/internal/logging"
	"beverage-backend/internal/models"
	"beverage-backend/internal/realtime"
	"beverage-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CreateRequest struct {
	Name          string                  `json:"name" validate:"required,max=100"`
	Category      models.BeverageCategory `json:"category" validate:"required,oneof=coffee tea juice smoothie other"`
	Description   *string                 `json:"description" validate:"omitempty,max=500"`
	ImageURL      *string                 `json:"image_url" validate:"omitempty,max=500"`
	StockQuantity *int                    `json:"stock_quantity" validate:"omitempty,min=0"`
	Unit          string                  `json:"unit" validate:"omitempty,max=20"`
	MinStockAlert *int                    `json:"min_stock_alert" validate:"omitempty,min=0"`
	UnitPrice     *decimal.Decimal        `json:"unit_price"`
	CaffeineLevel models.CaffeineLevel    `json:"caffeine_level" validate:"omitempty,oneof=none low medium high"`
}

type UpdateRequest struct {
	Name          *string                  `json:"name" validate:"omitempty,min=1,max=100"`
	Category      *models.BeverageCategory `json:"category" validate:"omitempty,oneof=coffee tea juice smoothie other"`
	Description   *string                  `json:"description" validate:"omitempty,max=500"`
	ImageURL      *string                  `json:"image_url" validate:"omitempty,max=500"`
	StockQuantity *int                     `json:"stock_quantity" validate:"omitempty,min=0"`
	Unit          *string                  `json:"unit" validate:"omitempty,min=1,max=20"`
	MinStockAlert *int                     `json:"min_stock_alert" validate:"omitempty,min=0"`
	UnitPrice     *decimal.Decimal         `json:"unit_price"`
	CaffeineLevel *models.CaffeineLevel    `json:"caffeine_level" validate:"omitempty,oneof=none low medium high"`
	IsActive      *bool                    `json:"is_active"`
}

type StockRequest struct {
	Quantity int                    `json:"quantity" validate:"required,ne=0"`
	Reason   string                 `json:"reason" validate:"omitempty,max=255"`
	Type     models.TransactionType `json:"type" validate:"omitempty,oneof=stock_in stock_out adjustment"`
}

// Detail is a beverage with its rating summary and derived stock status.
type Detail struct {
	models.Beverage
	StockStatus   models.StockStatus `json:"stock_status"`
	AverageRating float64            `json:"average_rating"`
	TotalRatings  int64              `json:"total_ratings"`
}

type StockResult struct {
	Beverage    *models.Beverage             `json:"beverage"`
	Transaction *models.InventoryTransaction `json:"transaction"`
	StockBefore int                          `json:"stock_before"`
	StockAfter  int                          `json:"stock_after"`
}

// InventoryItem is one row of the stock overview.
type InventoryItem struct {
	ID            uint                    `json:"id"`
	Name          string                  `json:"name"`
	Category      models.BeverageCategory `json:"category"`
	StockQuantity int                     `json:"stock_quantity"`
	MinStockAlert int                     `json:"min_stock_alert"`
	Unit          string                  `json:"unit"`
	StockStatus   models.StockStatus      `json:"stock_status"`
}

type Service struct {
	store    *repository.Store
	notifier *realtime.Notifier
	events   events.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(store *repository.Store, notifier *realtime.Notifier, pub events.Publisher, log logrus.FieldLogger) *Service {
	return &Service{store: store, notifier: notifier, events: pub, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, f repository.BeverageFilter) ([]models.Beverage, int64, error) {
	if f.Category != "" && !models.ValidCategory(f.Category) {
		return nil, 0, apperror.Validation("Invalid category")
	}
	if f.CaffeineLevel != "" && !models.ValidCaffeineLevel(f.CaffeineLevel) {
		return nil, 0, apperror.Validation("Invalid caffeine_level")
	}
	if f.StockStatus != "" && !models.ValidStockStatus(f.StockStatus) {
		return nil, 0, apperror.Validation("Invalid stock_status")
	}
	return s.store.Beverages.List(ctx, f)
}

func (s *Service) find(ctx context.Context, id uint) (*models.Beverage, error) {
	b, err := s.store.Beverages.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Beverage not found")
	}
	return b, err
}

func (s *Service) Get(ctx context.Context, id uint) (*Detail, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	agg, err := s.store.Ratings.Aggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Beverage:      *b,
		StockStatus:   b.StockStatus(),
		AverageRating: agg.Average,
		TotalRatings:  agg.Count,
	}, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Beverage, error) {
	b := &models.Beverage{
		Name:          strings.TrimSpace(req.Name),
		Category:      req.Category,
		Description:   trimmed(req.Description),
		ImageURL:      trimmed(req.ImageURL),
		Unit:          strings.TrimSpace(req.Unit),
		MinStockAlert: models.DefaultMinStockAlert,
		CaffeineLevel: req.CaffeineLevel,
		IsActive:      true,
	}
	if b.Name == "" {
		return nil, apperror.Validation("Beverage name is required")
	}
	if b.Unit == "" {
		b.Unit = models.DefaultUnit
	}
	if b.CaffeineLevel == "" {
		b.CaffeineLevel = models.CaffeineNone
	}
	if req.StockQuantity != nil {
		b.StockQuantity = *req.StockQuantity
	}
	if req.MinStockAlert != nil {
		b.MinStockAlert = *req.MinStockAlert
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, apperror.Validation("Unit price must be a positive number")
		}
		b.UnitPrice = req.UnitPrice.Round(2)
	}

	if err := s.store.Beverages.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Beverage already exists")
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"beverage_id": b.ID, "name": b.Name}).Info("beverage created")
	return b, nil
}

// Update edits catalogue fields. A new stock_quantity is applied as an
// adjustment so the ledger still sums to the stock on hand.
func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest, actorID uint) (*models.Beverage, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("Beverage name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Description != nil {
		fields["description"] = trimmed(req.Description)
	}
	if req.ImageURL != nil {
		fields["image_url"] = trimmed(req.ImageURL)
	}
	if req.Unit != nil {
		fields["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.MinStockAlert != nil {
		fields["min_stock_alert"] = *req.MinStockAlert
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, apperror.Validation("Unit price must be a positive number")
		}
		fields["unit_price"] = req.UnitPrice.Round(2)
	}
	if req.CaffeineLevel != nil {
		fields["caffeine_level"] = *req.CaffeineLevel
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	setStock := req.StockQuantity != nil && *req.StockQuantity != current.StockQuantity
	if len(fields) == 0 && !setStock {
		return current, nil
	}

	var change *models.InventoryTransaction
	var before, after int
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if len(fields) > 0 {
			fields["updated_at"] = s.now()
			if err := tx.Beverages.Update(ctx, id, fields); err != nil {
				return err
			}
		}
		if !setStock {
			return nil
		}
		var err error
		before, after, err = tx.Beverages.AdjustStock(ctx, id, *req.StockQuantity-current.StockQuantity)
		if err != nil || after == before {
			return err
		}
		change, err = audit.WriteLog(ctx, tx.Inventory, audit.LogOptions{
			BeverageID:  id,
			Type:        models.TxAdjustment,
			Quantity:    after - before,
			Reason:      fmt.Sprintf("Stock set to %d", after),
			PerformedBy: actorID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Beverage already exists")
		}
		return nil, err
	}
	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.StockChanged(ctx, updated, current.StockQuantity)
	s.log.WithField("beverage_id", id).Info("beverage updated")
	if change != nil {
		events.Emit(ctx, s.events, s.log, events.InventoryAdjusted, logging.RequestID(ctx), events.InventoryPayload{
			BeverageID:      id,
			TransactionType: string(models.TxAdjustment),
			Quantity:        change.Quantity,
			StockBefore:     before,
			StockAfter:      after,
			PerformedBy:     actorID,
		})
	}
	return updated, nil
}

// Deactivate hides the beverage from ordering. Rows are kept because
// orders, ratings and the inventory ledger reference them.
func (s *Service) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.store.Beverages.Update(ctx, id, map[string]any{"is_active": false, "updated_at": s.now()}); err != nil {
		return err
	}
	s.log.WithField("beverage_id", id).Info("beverage deactivated")
	return nil
}

// stockType resolves the ledger type for a manual adjustment. Without an
// explicit type the sign of quantity decides.
func stockType(req StockRequest) (models.TransactionType, error) {
	switch req.Type {
	case "":
		if req.Quantity > 0 {
			return models.TxStockIn, nil
		}
		return models.TxStockOut, nil
	case models.TxStockIn:
		if req.Quantity < 0 {
			return "", apperror.Validation("stock_in quantity must be positive")
		}
	case models.TxStockOut:
		if req.Quantity > 0 {
			return "", apperror.Validation("stock_out quantity must be negative")
		}
	case models.TxAdjustment:
	default:
		return "", apperror.Validation("Invalid transaction type")
	}
	return req.Type, nil
}

// AdjustStock applies a manual stock change and records it in the ledger in
// one transaction.
func (s *Service) AdjustStock(ctx context.Context, id uint, req StockRequest, actorID uint) (*StockResult, error) {
	if req.Quantity == 0 {
		return nil, apperror.Validation("Quantity must not be zero")
	}
	txType, err := stockType(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	res := &StockResult{}
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		before, after, err := tx.Beverages.AdjustStock(ctx, id, req.Quantity)
		if err != nil {
			return err
		}
		res.StockBefore, res.StockAfter = before, after
		res.Transaction, err = audit.WriteLog(ctx, tx.Inventory, audit.LogOptions{
			BeverageID:  id,
			Type:        txType,
			Quantity:    req.Quantity,
			Reason:      req.Reason,
			PerformedBy: actorID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Beverage not found")
		}
		return nil, err
	}
	if res.Beverage, err = s.find(ctx, id); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"beverage_id": id,
		"quantity":    req.Quantity,
		"type":        txType,
		"stock_after": res.StockAfter,
	}).Info("stock adjusted")
	s.notifier.StockChanged(ctx, res.Beverage, res.StockBefore)
	events.Emit(ctx, s.events, s.log, events.InventoryAdjusted, logging.RequestID(ctx), events.InventoryPayload{
		BeverageID:      id,
		TransactionType: string(txType),
		Quantity:        req.Quantity,
		StockBefore:     res.StockBefore,
		StockAfter:      res.StockAfter,
		PerformedBy:     actorID,
	})
	return res, nil
}

// Inventory lists every active beverage with its stock status.
func (s *Service) Inventory(ctx context.Context) ([]InventoryItem, error) {
	return s.inventory(ctx, "")
}

func (s *Service) LowStock(ctx context.Context) ([]InventoryItem, error) {
	return s.inventory(ctx, models.StockLow)
}

func (s *Service) OutOfStock(ctx context.Context) ([]InventoryItem, error) {
	return s.inventory(ctx, models.StockOut)
}

func (s *Service) inventory(ctx context.Context, status models.StockStatus) ([]InventoryItem, error) {
	list, _, err := s.store.Beverages.List(ctx, repository.BeverageFilter{ActiveOnly: true, StockStatus: status})
	if err != nil {
		return nil, err
	}
	out := make([]InventoryItem, 0, len(list))
	for i := range list {
		b := &list[i]
		out = append(out, InventoryItem{
			ID:            b.ID,
			Name:          b.Name,
			Category:      b.Category,
			StockQuantity: b.StockQuantity,
			MinStockAlert: b.MinStockAlert,
			Unit:          b.Unit,
			StockStatus:   b.StockStatus(),
		})
	}
	return out, nil
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
