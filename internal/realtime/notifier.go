package realtime

import (
	"context"
	"fmt"
	"time"

	"beverage-backend/internal/metrics"
	"beverage-backend/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	TypeNewOrder       = "new_order"
	TypeOrderFulfilled = "order_fulfilled"
	TypeOrderCancelled = "order_cancelled"
	TypeLowStock       = "low_stock"
)

type OrderSummary struct {
	ID            uint                 `json:"id"`
	EmployeeID    uint                 `json:"employee_id"`
	EmployeeName  string               `json:"employee_name,omitempty"`
	BeverageName  string               `json:"beverage_name,omitempty"`
	CupSize       models.CupSize       `json:"cup_size,omitempty"`
	SugarQuantity models.SugarQuantity `json:"sugar_quantity,omitempty"`
	Remarks       *string              `json:"remarks,omitempty"`
	Status        models.OrderStatus   `json:"status"`
	CreatedAt     *time.Time           `json:"created_at,omitempty"`
	FulfilledAt   *time.Time           `json:"fulfilled_at,omitempty"`
}

type BeverageSummary struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	MinStockAlert int    `json:"min_stock_alert"`
}

// Notifier turns domain changes into room broadcasts. Delivery is best
// effort: failures are logged and never returned.
type Notifier struct {
	b       Broadcaster
	log     logrus.FieldLogger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewNotifier(b Broadcaster, log logrus.FieldLogger, m *metrics.Collector) *Notifier {
	return &Notifier{b: b, log: log, metrics: m, now: time.Now}
}

func summarize(o *models.Order) *OrderSummary {
	s := &OrderSummary{
		ID:            o.ID,
		EmployeeID:    o.EmployeeID,
		CupSize:       o.CupSize,
		SugarQuantity: o.SugarQuantity,
		Remarks:       o.Remarks,
		Status:        o.Status,
		FulfilledAt:   o.FulfilledAt,
	}
	if !o.CreatedAt.IsZero() {
		created := o.CreatedAt
		s.CreatedAt = &created
	}
	if o.Employee != nil {
		s.EmployeeName = o.Employee.FullName
	}
	if o.Beverage != nil {
		s.BeverageName = o.Beverage.Name
	}
	return s
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func (n *Notifier) send(ctx context.Context, room string, note Notification) {
	if n == nil || n.b == nil {
		return
	}
	note.Timestamp = n.now().UTC()
	if err := n.b.Broadcast(ctx, room, note); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"room": room,
			"type": note.Type,
		}).Warn("notification not delivered")
	}
}

// NewOrder alerts office boys (admins share that room).
func (n *Notifier) NewOrder(ctx context.Context, o *models.Order) {
	s := summarize(o)
	n.send(ctx, RoomOfficeBoys, Notification{
		Type:    TypeNewOrder,
		Title:   "New order",
		Message: fmt.Sprintf("%s ordered %s", nameOr(s.EmployeeName, "An employee"), nameOr(s.BeverageName, "a beverage")),
		Order:   s,
	})
}

// OrderFulfilled tells the ordering employee their drink is ready.
func (n *Notifier) OrderFulfilled(ctx context.Context, o *models.Order) {
	s := summarize(o)
	n.send(ctx, UserRoom(o.EmployeeID), Notification{
		Type:    TypeOrderFulfilled,
		Title:   "Order ready",
		Message: fmt.Sprintf("Your %s is ready", nameOr(s.BeverageName, "beverage")),
		Order:   s,
	})
}

// OrderCancelled informs the owner, and the office boys when someone
// else cancelled.
func (n *Notifier) OrderCancelled(ctx context.Context, o *models.Order, cancelledBy uint) {
	s := summarize(o)
	note := Notification{
		Type:    TypeOrderCancelled,
		Title:   "Order cancelled",
		Message: fmt.Sprintf("Order for %s was cancelled", nameOr(s.BeverageName, "beverage")),
		Order:   s,
	}
	n.send(ctx, UserRoom(o.EmployeeID), note)

	if cancelledBy != o.EmployeeID {
		note.Message = fmt.Sprintf("%s's order for %s was cancelled", nameOr(s.EmployeeName, "An employee"), nameOr(s.BeverageName, "beverage"))
		n.send(ctx, RoomOfficeBoys, note)
	}
}

// LowStock alerts admins about a beverage at or below its threshold.
func (n *Notifier) LowStock(ctx context.Context, b *models.Beverage) {
	if n == nil {
		return
	}
	n.metrics.LowStockAlert()
	msg := fmt.Sprintf("Stock is low: %s (%d left)", b.Name, b.StockQuantity)
	if b.IsOutOfStock() {
		msg = fmt.Sprintf("Out of stock: %s", b.Name)
	}
	n.send(ctx, RoomAdmins, Notification{
		Type:    TypeLowStock,
		Title:   "Stock alert",
		Message: msg,
		Beverage: &BeverageSummary{
			ID:            b.ID,
			Name:          b.Name,
			StockQuantity: b.StockQuantity,
			MinStockAlert: b.MinStockAlert,
		},
	})
}

// StockChanged raises a low-stock alert when a decrease leaves b at or
// below its threshold. b must already carry the new quantity.
func (n *Notifier) StockChanged(ctx context.Context, b *models.Beverage, before int) {
	if b.StockQuantity < before && b.StockQuantity <= b.MinStockAlert {
		n.LowStock(ctx, b)
	}
}
