package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

type CupSize string

const (
	CupSmall CupSize = "small"
	CupLarge CupSize = "large"
)

type SugarQuantity string

const (
	SugarNone  SugarQuantity = "none"
	SugarOne   SugarQuantity = "1"
	SugarTwo   SugarQuantity = "2"
	SugarThree SugarQuantity = "3"
)

// MaxOrdersPerDay caps pending+fulfilled orders per employee per calendar day.
const MaxOrdersPerDay = 3

// ActiveOrderStatuses are the statuses counted against the daily limit.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderFulfilled}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderFulfilled: true, OrderCancelled: true},
	OrderFulfilled: {},
	OrderCancelled: {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	EmployeeID    uint          `gorm:"index:idx_orders_employee_day;not null" json:"employee_id"`
	Employee      *User         `gorm:"foreignKey:EmployeeID" json:"-"`
	BeverageID    uint          `gorm:"index;not null" json:"beverage_id"`
	Beverage      *Beverage     `gorm:"foreignKey:BeverageID" json:"-"`
	OrderDate     time.Time     `gorm:"index:idx_orders_employee_day;index;not null" json:"order_date"`
	CupSize       CupSize       `gorm:"size:10;not null" json:"cup_size"`
	SugarQuantity SugarQuantity `gorm:"size:10;not null" json:"sugar_quantity"`
	AddOns        []string      `gorm:"serializer:json" json:"add_ons"`
	Remarks       *string       `gorm:"size:500" json:"remarks"`
	Status        OrderStatus   `gorm:"size:20;index;not null" json:"status"`
	FulfilledBy   *uint         `json:"fulfilled_by"`
	FulfilledAt   *time.Time    `json:"fulfilled_at"`
	CancelledBy   *uint         `json:"cancelled_by"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayRange returns [start, start+1 day) for the calendar day containing t.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}
