// Package report aggregates orders, stock movements and sessions into the
// admin dashboards and the daily exports.
package report

import (
	"context"
	"math"
	"sort"
	"time"

	"beverage-backend/internal/beverage"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	dateLayout = "2006-01-02"

	defaultDays         = 30
	defaultPopularLimit = 10
	defaultTopConsumers = 10
	consumerWindowDays  = 30
	fastMovingDays      = 7
	fastMovingLimit     = 10
)

// OnlineCounter reports live websocket connections per role.
type OnlineCounter interface {
	ConnectedByRole() map[models.UserRole]int
}

type Dashboard struct {
	DailyOrdersCount   int64 `json:"daily_orders_count"`
	PendingOrdersCount int64 `json:"pending_orders_count"`
	OutOfStockCount    int64 `json:"out_of_stock_count"`
	LowStockCount      int64 `json:"low_stock_count"`
	TotalBeverages     int64 `json:"total_beverages"`
}

type BeverageCount struct {
	Beverage *models.BeverageRef `json:"beverage"`
	Count    int                 `json:"order_count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"order_count"`
}

type EmployeeStat struct {
	Employee      *models.UserRef `json:"employee"`
	TotalOrders   int             `json:"total_orders"`
	Fulfilled     int             `json:"fulfilled_orders"`
	Cancelled     int             `json:"cancelled_orders"`
	Pending       int             `json:"pending_orders"`
	LastOrderDate *string         `json:"last_order_date"`
}

type Consumer struct {
	Employee   *models.UserRef `json:"employee"`
	OrderCount int             `json:"order_count"`
}

type FastMover struct {
	Beverage      *models.BeverageRef `json:"beverage"`
	OrderCount    int                 `json:"order_count"`
	DailyAverage  float64             `json:"daily_average"`
	StockQuantity int                 `json:"stock_quantity"`
	MinStockAlert int                 `json:"min_stock_alert"`
	StockStatus   models.StockStatus  `json:"stock_status"`
}

type EmployeeActivity struct {
	Employee     *models.UserRef `json:"employee"`
	Logins       int             `json:"login_count"`
	TotalMinutes int             `json:"total_minutes"`
	LastLogin    *time.Time      `json:"last_login"`
	Orders       int             `json:"order_count"`
}

type DailyLogin struct {
	Date        string `json:"date"`
	Logins      int    `json:"login_count"`
	UniqueUsers int    `json:"unique_users"`
}

type OnlineUser struct {
	SessionID uint            `json:"session_id"`
	User      *models.UserRef `json:"user"`
	Role      models.UserRole `json:"role"`
	LoginTime time.Time       `json:"login_time"`
	IPAddress *string         `json:"ip_address"`
}

type Online struct {
	Sessions  []OnlineUser            `json:"sessions"`
	Connected map[models.UserRole]int `json:"connected"`
}

type StockFlowDay struct {
	Date     string `json:"date"`
	StockIn  int    `json:"stock_in"`
	StockOut int    `json:"stock_out"`
	Net      int    `json:"net"`
}

type Turnover struct {
	Beverage      *models.BeverageRef `json:"beverage"`
	Consumed      int                 `json:"consumed"`
	Restocked     int                 `json:"restocked"`
	StockQuantity int                 `json:"stock_quantity"`
	TurnoverRatio float64             `json:"turnover_ratio"`
	// DaysOfStock is nil when nothing was consumed in the window.
	DaysOfStock *float64 `json:"days_of_stock"`
}

type Summary struct {
	TotalOrders     int     `json:"total_orders"`
	Fulfilled       int     `json:"fulfilled_orders"`
	Cancelled       int     `json:"cancelled_orders"`
	Pending         int     `json:"pending_orders"`
	FulfillmentRate float64 `json:"fulfillment_rate"`
	UniqueEmployees int     `json:"unique_employees"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"order_count"`
}

type CategoryCount struct {
	Category models.BeverageCategory `json:"category"`
	Count    int                     `json:"order_count"`
}

type Analytics struct {
	Days        int             `json:"days"`
	Summary     Summary         `json:"summary"`
	Popular     []BeverageCount `json:"popular_beverages"`
	Consumption []DayCount      `json:"daily_consumption"`
	PeakHours   []HourCount     `json:"peak_hours"`
	Categories  []CategoryCount `json:"categories"`
}

type Service struct {
	store     *repository.Store
	beverages *beverage.Service
	online    OnlineCounter
	loc       *time.Location
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(store *repository.Store, beverages *beverage.Service, online OnlineCounter, loc *time.Location, log logrus.FieldLogger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, beverages: beverages, online: online, loc: loc, log: log, now: time.Now}
}

func (s *Service) Location() *time.Location { return s.loc }

// window returns [today-(days-1), tomorrow) so that days=1 means today.
func (s *Service) window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = defaultDays
	}
	start, end := models.DayRange(s.now(), s.loc)
	return start.AddDate(0, 0, -(days - 1)), end
}

func (s *Service) orders(ctx context.Context, from, to time.Time, statuses ...models.OrderStatus) ([]models.Order, error) {
	list, _, err := s.store.Orders.List(ctx, repository.OrderFilter{Statuses: statuses, From: &from, To: &to})
	return list, err
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	from, to := models.DayRange(s.now(), s.loc)
	today, err := s.orders(ctx, from, to)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{DailyOrdersCount: int64(len(today))}
	for _, o := range today {
		if o.Status == models.OrderPending {
			d.PendingOrdersCount++
		}
	}
	active, total, err := s.store.Beverages.List(ctx, repository.BeverageFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	d.TotalBeverages = total
	for i := range active {
		switch active[i].StockStatus() {
		case models.StockOut:
			d.OutOfStockCount++
		case models.StockLow:
			d.LowStockCount++
		}
	}
	return d, nil
}

// Popular ranks beverages by order count over the last days, excluding
// cancelled orders.
func (s *Service) Popular(ctx context.Context, days, limit int) ([]BeverageCount, error) {
	from, to := s.window(days)
	list, err := s.orders(ctx, from, to, models.ActiveOrderStatuses...)
	if err != nil {
		return nil, err
	}
	return popular(list, limit), nil
}

func popular(list []models.Order, limit int) []BeverageCount {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	idx := map[uint]int{}
	var out []BeverageCount
	for i := range list {
		o := &list[i]
		j, ok := idx[o.BeverageID]
		if !ok {
			j = len(out)
			idx[o.BeverageID] = j
			out = append(out, BeverageCount{Beverage: o.Beverage.Ref()})
		}
		out[j].Count++
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return refName(out[a].Beverage) < refName(out[b].Beverage)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []BeverageCount{}
	}
	return out
}

func refName(r *models.BeverageRef) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (s *Service) Inventory(ctx context.Context) ([]beverage.InventoryItem, error) {
	return s.beverages.Inventory(ctx)
}

// Consumption counts non-cancelled orders per day, oldest first, including
// days without orders.
func (s *Service) Consumption(ctx context.Context, days int) ([]DayCount, error) {
	from, to := s.window(days)
	list, err := s.orders(ctx, from, to, models.ActiveOrderStatuses...)
	if err != nil {
		return nil, err
	}
	return s.perDay(list, from, to), nil
}

func (s *Service) perDay(list []models.Order, from, to time.Time) []DayCount {
	counts := map[string]int{}
	for i := range list {
		counts[list[i].OrderDate.In(s.loc).Format(dateLayout)]++
	}
	var out []DayCount
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}

// EmployeeStats summarises every employee's order history, busiest first.
func (s *Service) EmployeeStats(ctx context.Context) ([]EmployeeStat, error) {
	list, _, err := s.store.Orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	idx := map[uint]int{}
	var out []EmployeeStat
	last := map[uint]time.Time{}
	for i := range list {
		o := &list[i]
		j, ok := idx[o.EmployeeID]
		if !ok {
			j = len(out)
			idx[o.EmployeeID] = j
			out = append(out, EmployeeStat{Employee: o.Employee.Ref()})
		}
		st := &out[j]
		st.TotalOrders++
		switch o.Status {
		case models.OrderFulfilled:
			st.Fulfilled++
		case models.OrderCancelled:
			st.Cancelled++
		case models.OrderPending:
			st.Pending++
		}
		if o.OrderDate.After(last[o.EmployeeID]) {
			last[o.EmployeeID] = o.OrderDate
		}
	}
	for id, j := range idx {
		d := last[id].In(s.loc).Format(dateLayout)
		out[j].LastOrderDate = &d
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].TotalOrders > out[b].TotalOrders })
	if out == nil {
		out = []EmployeeStat{}
	}
	return out, nil
}

// TopConsumers ranks employees by non-cancelled orders over the last 30 days.
func (s *Service) TopConsumers(ctx context.Context, limit int) ([]Consumer, error) {
	if limit <= 0 {
		limit = defaultTopConsumers
	}
	from, to := s.window(consumerWindowDays)
	list, err := s.orders(ctx, from, to, models.ActiveOrderStatuses...)
	if err != nil {
		return nil, err
	}
	idx := map[uint]int{}
	var out []Consumer
	for i := range list {
		o := &list[i]
		j, ok := idx[o.EmployeeID]
		if !ok {
			j = len(out)
			idx[o.EmployeeID] = j
			out = append(out, Consumer{Employee: o.Employee.Ref()})
		}
		out[j].OrderCount++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].OrderCount > out[b].OrderCount })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Consumer{}
	}
	return out, nil
}

// FastMoving lists the beverages fulfilled most often over the last week
// together with their current stock.
func (s *Service) FastMoving(ctx context.Context) ([]FastMover, error) {
	from, to := s.window(fastMovingDays)
	list, err := s.orders(ctx, from, to, models.OrderFulfilled)
	if err != nil {
		return nil, err
	}
	byID := map[uint]*models.Beverage{}
	for i := range list {
		if b := list[i].Beverage; b != nil {
			byID[b.ID] = b
		}
	}
	ranked := popular(list, fastMovingLimit)
	out := make([]FastMover, 0, len(ranked))
	for _, r := range ranked {
		if r.Beverage == nil {
			continue
		}
		b := byID[r.Beverage.ID]
		out = append(out, FastMover{
			Beverage:      r.Beverage,
			OrderCount:    r.Count,
			DailyAverage:  round2(float64(r.Count) / fastMovingDays),
			StockQuantity: b.StockQuantity,
			MinStockAlert: b.MinStockAlert,
			StockStatus:   b.StockStatus(),
		})
	}
	return out, nil
}

// EmployeeActivity combines logins and orders per user over the last days.
func (s *Service) EmployeeActivity(ctx context.Context, days int) ([]EmployeeActivity, error) {
	from, to := s.window(days)
	sessions, err := s.store.Sessions.ListSince(ctx, from)
	if err != nil {
		return nil, err
	}
	list, err := s.orders(ctx, from, to)
	if err != nil {
		return nil, err
	}

	idx := map[uint]int{}
	var out []EmployeeActivity
	entry := func(id uint, u *models.User) *EmployeeActivity {
		j, ok := idx[id]
		if !ok {
			j = len(out)
			idx[id] = j
			out = append(out, EmployeeActivity{Employee: u.Ref()})
		}
		return &out[j]
	}
	for i := range sessions {
		ss := &sessions[i]
		a := entry(ss.UserID, ss.User)
		a.Logins++
		if ss.SessionDuration != nil {
			a.TotalMinutes += *ss.SessionDuration
		}
		if a.LastLogin == nil || ss.LoginTime.After(*a.LastLogin) {
			t := ss.LoginTime
			a.LastLogin = &t
		}
	}
	for i := range list {
		o := &list[i]
		entry(o.EmployeeID, o.Employee).Orders++
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Logins != out[b].Logins {
			return out[a].Logins > out[b].Logins
		}
		return out[a].Orders > out[b].Orders
	})
	if out == nil {
		out = []EmployeeActivity{}
	}
	return out, nil
}

func (s *Service) DailyLogins(ctx context.Context, days int) ([]DailyLogin, error) {
	from, to := s.window(days)
	sessions, err := s.store.Sessions.ListSince(ctx, from)
	if err != nil {
		return nil, err
	}
	logins := map[string]int{}
	users := map[string]map[uint]struct{}{}
	for _, ss := range sessions {
		key := ss.LoginTime.In(s.loc).Format(dateLayout)
		logins[key]++
		if users[key] == nil {
			users[key] = map[uint]struct{}{}
		}
		users[key][ss.UserID] = struct{}{}
	}
	var out []DailyLogin
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		out = append(out, DailyLogin{Date: key, Logins: logins[key], UniqueUsers: len(users[key])})
	}
	return out, nil
}

func (s *Service) OnlineUsers(ctx context.Context) (*Online, error) {
	active, err := s.store.Sessions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	res := &Online{Sessions: make([]OnlineUser, 0, len(active))}
	for i := range active {
		ss := &active[i]
		u := OnlineUser{SessionID: ss.ID, LoginTime: ss.LoginTime, IPAddress: ss.IPAddress}
		if ss.User != nil {
			u.User = ss.User.Ref()
			u.Role = ss.User.Role
		}
		res.Sessions = append(res.Sessions, u)
	}
	if s.online != nil {
		res.Connected = s.online.ConnectedByRole()
	} else {
		res.Connected = map[models.UserRole]int{}
	}
	return res, nil
}

// StockFlow sums ledger movements per day. Positive quantities count as
// stock in, negative ones as stock out.
func (s *Service) StockFlow(ctx context.Context, days int, beverageID uint) ([]StockFlowDay, error) {
	from, to := s.window(days)
	txs, _, err := s.store.Inventory.List(ctx, repository.InventoryFilter{BeverageID: beverageID, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	in := map[string]int{}
	outs := map[string]int{}
	for _, tx := range txs {
		key := tx.CreatedAt.In(s.loc).Format(dateLayout)
		if tx.Quantity >= 0 {
			in[key] += tx.Quantity
		} else {
			outs[key] -= tx.Quantity
		}
	}
	var out []StockFlowDay
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		out = append(out, StockFlowDay{Date: key, StockIn: in[key], StockOut: outs[key], Net: in[key] - outs[key]})
	}
	return out, nil
}

// InventoryTurnover relates each active beverage's outflow over the window to
// its current stock.
func (s *Service) InventoryTurnover(ctx context.Context, days int) ([]Turnover, error) {
	if days <= 0 {
		days = defaultDays
	}
	from, to := s.window(days)
	bevs, _, err := s.store.Beverages.List(ctx, repository.BeverageFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	txs, _, err := s.store.Inventory.List(ctx, repository.InventoryFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	consumed := map[uint]int{}
	restocked := map[uint]int{}
	for _, tx := range txs {
		if tx.Quantity < 0 {
			consumed[tx.BeverageID] -= tx.Quantity
		} else {
			restocked[tx.BeverageID] += tx.Quantity
		}
	}
	out := make([]Turnover, 0, len(bevs))
	for i := range bevs {
		b := &bevs[i]
		t := Turnover{
			Beverage:      b.Ref(),
			Consumed:      consumed[b.ID],
			Restocked:     restocked[b.ID],
			StockQuantity: b.StockQuantity,
			TurnoverRatio: round2(float64(consumed[b.ID]) / float64(max(b.StockQuantity, 1))),
		}
		if t.Consumed > 0 {
			left := round2(float64(b.StockQuantity) / (float64(t.Consumed) / float64(days)))
			t.DaysOfStock = &left
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].TurnoverRatio > out[b].TurnoverRatio })
	return out, nil
}

func (s *Service) Analytics(ctx context.Context, days int) (*Analytics, error) {
	if days <= 0 {
		days = defaultDays
	}
	from, to := s.window(days)
	list, err := s.orders(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var active []models.Order
	sum := Summary{TotalOrders: len(list)}
	employees := map[uint]struct{}{}
	hours := make([]int, 24)
	categories := map[models.BeverageCategory]int{}
	for i := range list {
		o := &list[i]
		employees[o.EmployeeID] = struct{}{}
		switch o.Status {
		case models.OrderFulfilled:
			sum.Fulfilled++
		case models.OrderCancelled:
			sum.Cancelled++
			continue
		case models.OrderPending:
			sum.Pending++
		}
		active = append(active, *o)
		hours[o.CreatedAt.In(s.loc).Hour()]++
		if o.Beverage != nil {
			categories[o.Beverage.Category]++
		}
	}
	sum.UniqueEmployees = len(employees)
	if sum.TotalOrders > 0 {
		sum.FulfillmentRate = round2(float64(sum.Fulfilled) * 100 / float64(sum.TotalOrders))
	}

	a := &Analytics{
		Days:        days,
		Summary:     sum,
		Popular:     popular(active, 5),
		Consumption: s.perDay(active, from, to),
		PeakHours:   []HourCount{},
		Categories:  []CategoryCount{},
	}
	for h, n := range hours {
		if n > 0 {
			a.PeakHours = append(a.PeakHours, HourCount{Hour: h, Count: n})
		}
	}
	sort.SliceStable(a.PeakHours, func(i, j int) bool { return a.PeakHours[i].Count > a.PeakHours[j].Count })
	for c, n := range categories {
		a.Categories = append(a.Categories, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(a.Categories, func(i, j int) bool {
		if a.Categories[i].Count != a.Categories[j].Count {
			return a.Categories[i].Count > a.Categories[j].Count
		}
		return a.Categories[i].Category < a.Categories[j].Category
	})
	return a, nil
}

// DayOrders returns every order placed on the calendar day of date, oldest
// first.
func (s *Service) DayOrders(ctx context.Context, date time.Time) ([]models.Order, error) {
	from, to := models.DayRange(date, s.loc)
	list, err := s.orders(ctx, from, to)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
