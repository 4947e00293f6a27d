package beverage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/events"
	"beverage-backend/internal/models"
	"beverage-backend/internal/realtime"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/response"
	"beverage-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc   *Service
	store *repository.Store
	db    *gorm.DB
	sent  *testutil.Recorder
	admin *models.User
}

func newFixture(t *testing.T) fixture {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	rec := &testutil.Recorder{}
	log := testutil.Logger()
	svc := NewService(store, realtime.NewNotifier(rec, log, nil), events.Noop{}, log)
	return fixture{svc: svc, store: store, db: db, sent: rec, admin: testutil.CreateUser(t, db, "admin", models.RoleAdmin)}
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	price := decimal.RequireFromString("8.755")
	b, err := f.svc.Create(t.Context(), CreateRequest{Name: " Green Tea ", Category: models.CategoryTea, UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "Green Tea", b.Name)
	assert.Equal(t, models.DefaultUnit, b.Unit)
	assert.Equal(t, models.DefaultMinStockAlert, b.MinStockAlert)
	assert.Equal(t, models.CaffeineNone, b.CaffeineLevel)
	assert.Equal(t, "8.76", b.UnitPrice.StringFixed(2))
	assert.True(t, b.IsActive)

	zero := 0
	b, err = f.svc.Create(t.Context(), CreateRequest{Name: "Water", Category: models.CategoryOther, MinStockAlert: &zero})
	require.NoError(t, err)
	got, err := f.store.Beverages.FindByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MinStockAlert)
}

func TestGetIncludesRatingSummary(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Latte", 5)
	emp := testutil.CreateUser(t, f.db, "sara", models.RoleEmployee)
	require.NoError(t, f.store.Ratings.Upsert(t.Context(), &models.Rating{EmployeeID: emp.ID, BeverageID: b.ID, Rating: 4}))
	require.NoError(t, f.store.Ratings.Upsert(t.Context(), &models.Rating{EmployeeID: f.admin.ID, BeverageID: b.ID, Rating: 5}))

	d, err := f.svc.Get(t.Context(), b.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, d.AverageRating, 0.001)
	assert.EqualValues(t, 2, d.TotalRatings)
	assert.Equal(t, models.StockLow, d.StockStatus)

	_, err = f.svc.Get(t.Context(), 9999)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAdjustStockClampsAndRecords(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Espresso", 12)

	res, err := f.svc.AdjustStock(t.Context(), b.ID, StockRequest{Quantity: -20, Reason: "spoiled"}, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, res.StockBefore)
	assert.Equal(t, 0, res.StockAfter)
	assert.Equal(t, 0, res.Beverage.StockQuantity)
	assert.Equal(t, models.TxStockOut, res.Transaction.TransactionType)
	assert.Equal(t, -20, res.Transaction.Quantity)

	alerts := f.sent.OfType(realtime.TypeLowStock)
	require.Len(t, alerts, 1)
	assert.Equal(t, realtime.RoomAdmins, alerts[0].Room)

	res, err = f.svc.AdjustStock(t.Context(), b.ID, StockRequest{Quantity: 30}, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, res.StockAfter)
	assert.Equal(t, models.TxStockIn, res.Transaction.TransactionType)
	assert.Len(t, f.sent.OfType(realtime.TypeLowStock), 1, "increases never alert")

	txs, total, err := f.store.Inventory.List(t.Context(), repository.InventoryFilter{BeverageID: b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, models.TxStockIn, txs[0].TransactionType)
}

func TestAdjustStockRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Mocha", 5)
	ctx := t.Context()

	_, err := f.svc.AdjustStock(ctx, b.ID, StockRequest{Quantity: 0}, f.admin.ID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = f.svc.AdjustStock(ctx, b.ID, StockRequest{Quantity: -1, Type: models.TxStockIn}, f.admin.ID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = f.svc.AdjustStock(ctx, b.ID, StockRequest{Quantity: 1, Type: models.TxOrderDeduction}, f.admin.ID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = f.svc.AdjustStock(ctx, 9999, StockRequest{Quantity: 1}, f.admin.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestInventoryViews(t *testing.T) {
	f := newFixture(t)
	testutil.CreateBeverage(t, f.db, "Full", 50)
	testutil.CreateBeverage(t, f.db, "Low", 3)
	empty := testutil.CreateBeverage(t, f.db, "Empty", 0)
	hidden := testutil.CreateBeverage(t, f.db, "Hidden", 0)
	require.NoError(t, f.svc.Deactivate(t.Context(), hidden.ID))

	all, err := f.svc.Inventory(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	low, err := f.svc.LowStock(t.Context())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Low", low[0].Name)

	out, err := f.svc.OutOfStock(t.Context())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, empty.ID, out[0].ID)
	assert.Equal(t, models.StockOut, out[0].StockStatus)
}

func TestUpdateAndDeactivate(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Cappuccino", 20)

	stock := 4
	name := "Flat White"
	got, err := f.svc.Update(t.Context(), b.ID, UpdateRequest{Name: &name, StockQuantity: &stock}, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flat White", got.Name)
	assert.Equal(t, 4, got.StockQuantity)
	assert.Len(t, f.sent.OfType(realtime.TypeLowStock), 1)

	txs, _, err := f.store.Inventory.List(t.Context(), repository.InventoryFilter{BeverageID: b.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxAdjustment, txs[0].TransactionType)
	assert.Equal(t, -16, txs[0].Quantity)
	assert.Equal(t, f.admin.ID, txs[0].PerformedBy)

	desc := "Double shot"
	_, err = f.svc.Update(t.Context(), b.ID, UpdateRequest{Description: &desc, StockQuantity: &stock}, f.admin.ID)
	require.NoError(t, err)
	_, total, err := f.store.Inventory.List(t.Context(), repository.InventoryFilter{BeverageID: b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "unchanged stock writes no ledger row")

	require.NoError(t, f.svc.Deactivate(t.Context(), b.ID))
	d, err := f.svc.Get(t.Context(), b.ID)
	require.NoError(t, err)
	assert.False(t, d.IsActive)

	_, _, err = f.svc.List(t.Context(), repository.BeverageFilter{Category: "soda"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestStockRouteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	b := testutil.CreateBeverage(t, f.db, "Chai", 10)
	emp := testutil.CreateUser(t, f.db, "sara", models.RoleEmployee)

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(testutil.Logger())})
	var current *models.User
	app.Use(func(c *fiber.Ctx) error {
		auth.SetPrincipal(c, auth.PrincipalFor(current, 0))
		return c.Next()
	})
	Register(app.Group("/api/beverages"), f.svc, f.store.Inventory, time.UTC)

	post := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/beverages/%d/stock", b.ID), strings.NewReader(`{"quantity":5,"reason":"delivery"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	current = emp
	assert.Equal(t, http.StatusForbidden, post().StatusCode)

	current = f.admin
	resp := post()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/beverages/transactions?type=stock_in", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env struct {
		Success bool             `json:"success"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Len(t, env.Data, 1)
	assert.EqualValues(t, 5, env.Data[0]["quantity"])
	assert.Equal(t, "Chai", env.Data[0]["beverage"].(map[string]any)["name"])
}
