package order

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/lock"
	"beverage-backend/internal/metrics"
	"beverage-backend/internal/models"
	"beverage-backend/internal/realtime"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/response"
	"beverage-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc       *Service
	store     *repository.Store
	db        *gorm.DB
	sent      *testutil.Recorder
	metrics   *metrics.Collector
	employee  *auth.Principal
	officeBoy *auth.Principal
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	rec := &testutil.Recorder{}
	log := testutil.Logger()
	m := metrics.New()

	f := &fixture{
		store:     store,
		db:        db,
		sent:      rec,
		metrics:   m,
		employee:  auth.PrincipalFor(testutil.CreateUser(t, db, "sara", models.RoleEmployee), 0),
		officeBoy: auth.PrincipalFor(testutil.CreateUser(t, db, "officeboy", models.RoleOfficeBoy), 0),
		clock:     time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Store:    store,
		Locker:   lock.NewLocal(),
		Notifier: realtime.NewNotifier(rec, log, m),
		Metrics:  m,
		Log:      log,
		Location: time.UTC,
	})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func latte() CreateRequest {
	return CreateRequest{CupSize: models.CupSmall, SugarQuantity: models.SugarOne}
}

func (f *fixture) order(t *testing.T, beverageID uint) *View {
	t.Helper()
	req := latte()
	req.BeverageID = beverageID
	o, err := f.svc.Create(t.Context(), f.employee, req)
	require.NoError(t, err)
	return o
}

func TestDailyLimitRejectsFourthOrder(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Latte", 50)

	var first *View
	for i := 0; i < models.MaxOrdersPerDay; i++ {
		o := f.order(t, b.ID)
		if first == nil {
			first = o
		}
		assert.Equal(t, models.OrderPending, o.Status)
	}

	req := latte()
	req.BeverageID = b.ID
	_, err := f.svc.Create(t.Context(), f.employee, req)
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Contains(t, appErr.Message, "daily order limit")
	assert.NoError(t, promtest.GatherAndCompare(f.metrics.Registry(), strings.NewReader(`
# HELP beverage_order_limit_rejections_total Orders rejected by the daily limit
# TYPE beverage_order_limit_rejections_total counter
beverage_order_limit_rejections_total 1
`), "beverage_order_limit_rejections_total"))

	// Cancelled orders free a slot.
	_, err = f.svc.Cancel(t.Context(), first.ID, f.employee)
	require.NoError(t, err)
	_, err = f.svc.Create(t.Context(), f.employee, req)
	require.NoError(t, err)

	f.clock = f.clock.Add(24 * time.Hour)
	_, err = f.svc.Create(t.Context(), f.employee, req)
	assert.NoError(t, err)
}

func TestConcurrentCreatesRespectLimit(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Latte", 50)
	req := latte()
	req.BeverageID = b.ID

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(t.Context(), f.employee, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperror.Is(err, apperror.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, models.MaxOrdersPerDay, created)
	assert.Equal(t, 6-models.MaxOrdersPerDay, conflicts)
}

func TestCreateRejectsUnavailableBeverage(t *testing.T) {
	f := newFixture(t)
	empty := testutil.CreateBeverage(t, f.db, "Empty", 0)
	retired := testutil.CreateBeverage(t, f.db, "Retired", 5)
	require.NoError(t, f.db.Model(&models.Beverage{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	for id, kind := range map[uint]apperror.Kind{
		empty.ID:   apperror.KindValidation,
		retired.ID: apperror.KindValidation,
		9999:       apperror.KindNotFound,
	} {
		req := latte()
		req.BeverageID = id
		_, err := f.svc.Create(t.Context(), f.employee, req)
		assert.True(t, apperror.Is(err, kind), "beverage %d: %v", id, err)
	}
}

func TestCreateNotifiesOfficeBoys(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Latte", 50)
	o := f.order(t, b.ID)

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), o.OrderDate.UTC())
	require.NotNil(t, o.Beverage)
	assert.Equal(t, "Latte", o.Beverage.Name)

	sent := f.sent.OfType(realtime.TypeNewOrder)
	require.Len(t, sent, 1)
	assert.Equal(t, realtime.RoomOfficeBoys, sent[0].Room)
	assert.Equal(t, "Sara", sent[0].Notification.Order.EmployeeName)
}

func TestFulfillDeductsStockAndNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Espresso", 1)
	o := f.order(t, b.ID)

	done, err := f.svc.Fulfill(t.Context(), o.ID, f.officeBoy)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFulfilled, done.Status)
	require.NotNil(t, done.FulfilledBy)
	assert.Equal(t, f.officeBoy.UserID, *done.FulfilledBy)
	assert.NotNil(t, done.FulfilledAt)

	got, err := f.store.Beverages.FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	txs, _, err := f.store.Inventory.List(t.Context(), repository.InventoryFilter{BeverageID: b.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxOrderDeduction, txs[0].TransactionType)
	assert.Equal(t, -1, txs[0].Quantity)
	require.NotNil(t, txs[0].OrderID)
	assert.Equal(t, o.ID, *txs[0].OrderID)

	fulfilled := f.sent.OfType(realtime.TypeOrderFulfilled)
	require.Len(t, fulfilled, 1)
	assert.Equal(t, realtime.UserRoom(f.employee.UserID), fulfilled[0].Room)
	assert.Len(t, f.sent.OfType(realtime.TypeLowStock), 1)

	_, err = f.svc.Fulfill(t.Context(), o.ID, f.officeBoy)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	_, err = f.svc.Cancel(t.Context(), o.ID, f.officeBoy)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Len(t, f.sent.OfType(realtime.TypeOrderFulfilled), 1)
}

func TestFulfillAtZeroStockClamps(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Mocha", 1)
	o := f.order(t, b.ID)
	require.NoError(t, f.db.Model(&models.Beverage{}).Where("id = ?", b.ID).Update("stock_quantity", 0).Error)

	_, err := f.svc.Fulfill(t.Context(), o.ID, f.officeBoy)
	require.NoError(t, err)

	got, err := f.store.Beverages.FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
	txs, total, err := f.store.Inventory.List(t.Context(), repository.InventoryFilter{Type: models.TxOrderDeduction})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, 0, txs[0].Quantity, "nothing was taken from an empty shelf")
}

func TestConcurrentFulfillSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Latte", 20)
	o := f.order(t, b.ID)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Fulfill(t.Context(), o.ID, f.officeBoy)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperror.Is(err, apperror.KindConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, conflicts)
	got, err := f.store.Beverages.FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 19, got.StockQuantity)
	assert.Len(t, f.sent.OfType(realtime.TypeOrderFulfilled), 1)
}

func TestCancelPermissionsAndRooms(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Tea", 20)
	other := auth.PrincipalFor(testutil.CreateUser(t, f.db, "omar", models.RoleEmployee), 0)

	mine := f.order(t, b.ID)
	_, err := f.svc.Cancel(t.Context(), mine.ID, other)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	cancelled, err := f.svc.Cancel(t.Context(), mine.ID, f.employee)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	sent := f.sent.OfType(realtime.TypeOrderCancelled)
	require.Len(t, sent, 1)
	assert.Equal(t, realtime.UserRoom(f.employee.UserID), sent[0].Room)

	second := f.order(t, b.ID)
	_, err = f.svc.Cancel(t.Context(), second.ID, f.officeBoy)
	require.NoError(t, err)
	sent = f.sent.OfType(realtime.TypeOrderCancelled)[1:]
	require.Len(t, sent, 2)
	assert.Equal(t, realtime.UserRoom(f.employee.UserID), sent[0].Room)
	assert.Equal(t, realtime.RoomOfficeBoys, sent[1].Room)

	got, err := f.store.Beverages.FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.StockQuantity, "cancellation leaves stock alone")
}

func TestUpdateStatusRejectsPending(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Tea", 20)
	o := f.order(t, b.ID)

	_, err := f.svc.UpdateStatus(t.Context(), o.ID, models.OrderPending, f.officeBoy)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	v, err := f.svc.UpdateStatus(t.Context(), o.ID, models.OrderFulfilled, f.officeBoy)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFulfilled, v.Status)
}

func TestRemainingAndOwnership(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Juice", 20)
	o := f.order(t, b.ID)

	r, err := f.svc.RemainingToday(t.Context(), f.employee.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.Used)
	assert.EqualValues(t, 2, r.Remaining)
	assert.True(t, r.CanOrder)
	assert.Equal(t, "2026-03-02", r.Date)

	other := auth.PrincipalFor(testutil.CreateUser(t, f.db, "omar", models.RoleEmployee), 0)
	_, err = f.svc.Get(t.Context(), o.ID, other)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
	_, err = f.svc.Get(t.Context(), o.ID, f.officeBoy)
	assert.NoError(t, err)

	today, err := f.svc.MyToday(t.Context(), f.employee.UserID)
	require.NoError(t, err)
	assert.Len(t, today, 1)
	mine, err := f.svc.MyToday(t.Context(), other.UserID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestRoutesGuardFulfillment(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Latte", 20)
	o := f.order(t, b.ID)

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(testutil.Logger())})
	var current *auth.Principal
	app.Use(func(c *fiber.Ctx) error {
		auth.SetPrincipal(c, current)
		return c.Next()
	})
	Register(app.Group("/api/orders"), f.svc)

	patch := func(path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodPatch, path, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}
	path := "/api/orders/" + strconv.FormatUint(uint64(o.ID), 10) + "/fulfill"

	current = f.employee
	assert.Equal(t, http.StatusForbidden, patch(path))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	current = f.officeBoy
	assert.Equal(t, http.StatusOK, patch(path))
	assert.Equal(t, http.StatusConflict, patch(path))
}
