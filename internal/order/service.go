// Package order places, fulfills and cancels beverage orders.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/audit"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/events"
	"beverage-backend/internal/lock"
	"beverage-backend/internal/logging"
	"beverage-backend/internal/metrics"
	"beverage-backend/internal/models"
	"beverage-backend/internal/realtime"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

// lockTTL bounds how long a crashed instance can hold an employee's day.
const lockTTL = 10 * time.Second

var errNotPending = apperror.Conflict("Order has already been processed")

type CreateRequest struct {
	BeverageID    uint                 `json:"beverage_id" validate:"required"`
	CupSize       models.CupSize       `json:"cup_size" validate:"required,oneof=small large"`
	SugarQuantity models.SugarQuantity `json:"sugar_quantity" validate:"required,oneof=none 1 2 3"`
	AddOns        []string             `json:"add_ons" validate:"omitempty,max=10,dive,max=50"`
	Remarks       *string              `json:"remarks" validate:"omitempty,max=500"`
}

type StatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=pending fulfilled cancelled"`
}

// View is an order with the employee and beverage it references.
type View struct {
	models.Order
	Employee *models.UserRef     `json:"employee,omitempty"`
	Beverage *models.BeverageRef `json:"beverage,omitempty"`
}

func NewView(o *models.Order) *View {
	return &View{Order: *o, Employee: o.Employee.Ref(), Beverage: o.Beverage.Ref()}
}

func views(orders []models.Order) []*View {
	out := make([]*View, 0, len(orders))
	for i := range orders {
		out = append(out, NewView(&orders[i]))
	}
	return out
}

type Remaining struct {
	Date      string `json:"date"`
	Limit     int    `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	CanOrder  bool   `json:"can_order"`
}

type Deps struct {
	Store    *repository.Store
	Locker   lock.Locker
	Notifier *realtime.Notifier
	Events   events.Publisher
	Metrics  *metrics.Collector
	Log      logrus.FieldLogger
	Location *time.Location
}

type Service struct {
	store    *repository.Store
	locker   lock.Locker
	notifier *realtime.Notifier
	events   events.Publisher
	metrics  *metrics.Collector
	log      logrus.FieldLogger
	loc      *time.Location
	now      func() time.Time
}

func NewService(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	pub := d.Events
	if pub == nil {
		pub = events.Noop{}
	}
	locker := d.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Service{
		store:    d.Store,
		locker:   locker,
		notifier: d.Notifier,
		events:   pub,
		metrics:  d.Metrics,
		log:      d.Log,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) find(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.store.Orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Order not found")
	}
	return o, err
}

// Create places an order for the caller. The daily limit check and the
// insert run under a per-employee, per-day lock so concurrent requests
// cannot both pass the check.
func (s *Service) Create(ctx context.Context, p *auth.Principal, req CreateRequest) (*View, error) {
	if !p.Can(models.PermOrderCreate) {
		return nil, apperror.Authorization("You do not have permission to place orders")
	}
	dayStart, dayEnd := models.DayRange(s.now(), s.loc)

	key := fmt.Sprintf("order:%d:%s", p.UserID, dayStart.Format(time.DateOnly))
	l, err := s.locker.Obtain(ctx, key, lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, apperror.Conflict("Another order is being placed, please retry")
		}
		return nil, err
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("order lock not released")
		}
	}()

	b, err := s.store.Beverages.FindByID(ctx, req.BeverageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Beverage not found")
	}
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, apperror.Validation("Beverage is not available")
	}
	if b.IsOutOfStock() {
		return nil, apperror.Validation("Beverage is out of stock")
	}

	used, err := s.store.Orders.CountActiveForDay(ctx, p.UserID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if used >= models.MaxOrdersPerDay {
		s.metrics.LimitRejected()
		s.log.WithField("employee_id", p.UserID).Info("daily order limit reached")
		return nil, apperror.Conflict(fmt.Sprintf("You have reached your daily order limit (%d orders per day)", models.MaxOrdersPerDay))
	}

	o := &models.Order{
		EmployeeID:    p.UserID,
		BeverageID:    b.ID,
		OrderDate:     dayStart,
		CupSize:       req.CupSize,
		SugarQuantity: req.SugarQuantity,
		AddOns:        cleanAddOns(req.AddOns),
		Remarks:       trimmed(req.Remarks),
		Status:        models.OrderPending,
	}
	if err := s.store.Orders.Create(ctx, o); err != nil {
		return nil, err
	}

	full, err := s.find(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"order_id": o.ID, "employee_id": p.UserID, "beverage_id": b.ID}).Info("order created")
	s.metrics.OrderEvent("created")
	s.notifier.NewOrder(ctx, full)
	s.emit(ctx, events.OrderCreated, full, p.UserID)
	return NewView(full), nil
}

// UpdateStatus routes a status change to Fulfill or Cancel.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, p *auth.Principal) (*View, error) {
	switch status {
	case models.OrderFulfilled:
		return s.Fulfill(ctx, id, p)
	case models.OrderCancelled:
		return s.Cancel(ctx, id, p)
	default:
		return nil, apperror.Validation("Status can only be changed to fulfilled or cancelled")
	}
}

// Fulfill marks a pending order fulfilled, takes one unit from stock and
// records the deduction, all in one transaction.
func (s *Service) Fulfill(ctx context.Context, id uint, p *auth.Principal) (*View, error) {
	if !p.Can(models.PermOrderFulfill) {
		return nil, apperror.Authorization("Only admins and office boys can fulfill orders")
	}
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(o.Status, models.OrderFulfilled) {
		return nil, apperror.Conflict(fmt.Sprintf("Order is already %s", o.Status))
	}

	var stockBefore, stockAfter int
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		ok, err := tx.Orders.TransitionStatus(ctx, id, models.OrderFulfilled, p.UserID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return errNotPending
		}
		stockBefore, stockAfter, err = tx.Beverages.AdjustStock(ctx, o.BeverageID, -1)
		if err != nil {
			return err
		}
		_, err = audit.WriteLog(ctx, tx.Inventory, audit.OrderDeduction(o.BeverageID, id, p.UserID, stockAfter-stockBefore))
		return err
	})
	if err != nil {
		return nil, err
	}

	full, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"order_id":     id,
		"fulfilled_by": p.UserID,
		"stock_after":  stockAfter,
	}).Info("order fulfilled")
	s.metrics.OrderEvent("fulfilled")
	s.notifier.OrderFulfilled(ctx, full)
	if full.Beverage != nil {
		s.notifier.StockChanged(ctx, full.Beverage, stockBefore)
	}
	s.emit(ctx, events.OrderFulfilled, full, p.UserID)
	events.Emit(ctx, s.events, s.log, events.InventoryAdjusted, logging.RequestID(ctx), events.InventoryPayload{
		BeverageID:      o.BeverageID,
		TransactionType: string(models.TxOrderDeduction),
		Quantity:        stockAfter - stockBefore,
		StockBefore:     stockBefore,
		StockAfter:      stockAfter,
		OrderID:         &full.ID,
		PerformedBy:     p.UserID,
	})
	return NewView(full), nil
}

// Cancel stops a pending order. Staff may cancel any order; an employee
// only their own.
func (s *Service) Cancel(ctx context.Context, id uint, p *auth.Principal) (*View, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	own := o.EmployeeID == p.UserID && p.Can(models.PermOrderCancelOwn)
	if !own && !p.Can(models.PermOrderCancelAny) {
		return nil, apperror.Authorization("You can only cancel your own orders")
	}
	if !models.CanTransition(o.Status, models.OrderCancelled) {
		return nil, apperror.Conflict(fmt.Sprintf("Order is already %s", o.Status))
	}

	ok, err := s.store.Orders.TransitionStatus(ctx, id, models.OrderCancelled, p.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotPending
	}

	full, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"order_id": id, "cancelled_by": p.UserID}).Info("order cancelled")
	s.metrics.OrderEvent("cancelled")
	s.notifier.OrderCancelled(ctx, full, p.UserID)
	s.emit(ctx, events.OrderCancelled, full, p.UserID)
	return NewView(full), nil
}

func (s *Service) emit(ctx context.Context, eventType string, o *models.Order, actorID uint) {
	events.Emit(ctx, s.events, s.log, eventType, logging.RequestID(ctx), events.OrderPayload{
		OrderID:    o.ID,
		EmployeeID: o.EmployeeID,
		BeverageID: o.BeverageID,
		Status:     string(o.Status),
		ActorID:    actorID,
	})
}

// Get returns an order to staff or to its owner.
func (s *Service) Get(ctx context.Context, id uint, p *auth.Principal) (*View, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.EmployeeID != p.UserID && !p.Can(models.PermOrderViewAll) {
		return nil, apperror.Authorization("You can only view your own orders")
	}
	return NewView(o), nil
}

func (s *Service) List(ctx context.Context, f repository.OrderFilter) ([]*View, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperror.Validation("Invalid status")
	}
	orders, total, err := s.store.Orders.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return views(orders), total, nil
}

// Today lists every order placed today.
func (s *Service) Today(ctx context.Context) ([]*View, error) {
	from, to := models.DayRange(s.now(), s.loc)
	list, _, err := s.List(ctx, repository.OrderFilter{From: &from, To: &to})
	return list, err
}

func (s *Service) History(ctx context.Context, employeeID uint, page repository.Page) ([]*View, int64, error) {
	return s.List(ctx, repository.OrderFilter{EmployeeID: employeeID, Page: page})
}

func (s *Service) MyToday(ctx context.Context, employeeID uint) ([]*View, error) {
	from, to := models.DayRange(s.now(), s.loc)
	list, _, err := s.List(ctx, repository.OrderFilter{EmployeeID: employeeID, From: &from, To: &to})
	return list, err
}

// RemainingToday reports how many more orders the employee may place today.
func (s *Service) RemainingToday(ctx context.Context, employeeID uint) (*Remaining, error) {
	from, to := models.DayRange(s.now(), s.loc)
	used, err := s.store.Orders.CountActiveForDay(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	left := max(int64(models.MaxOrdersPerDay)-used, 0)
	return &Remaining{
		Date:      from.Format(time.DateOnly),
		Limit:     models.MaxOrdersPerDay,
		Used:      used,
		Remaining: left,
		CanOrder:  left > 0,
	}, nil
}

func cleanAddOns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
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
