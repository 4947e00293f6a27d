package favorite

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/response"
	"beverage-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleRoundTrips(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(repository.NewStore(db), testutil.Logger())
	emp := testutil.CreateUser(t, db, "sara", models.RoleEmployee)
	b := testutil.CreateBeverage(t, db, "Latte", 10)
	ctx := t.Context()

	res, err := svc.Toggle(ctx, emp.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.IsFavorite)
	assert.Equal(t, "Latte", res.Beverage.Name)

	res, err = svc.Toggle(ctx, emp.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, res.IsFavorite)

	ok, err := svc.IsFavorite(ctx, emp.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Toggle(ctx, emp.ID, 999)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAddIsIdempotentAndRemoveReportsMissing(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(repository.NewStore(db), testutil.Logger())
	emp := testutil.CreateUser(t, db, "sara", models.RoleEmployee)
	omar := testutil.CreateUser(t, db, "omar", models.RoleEmployee)
	tea := testutil.CreateBeverage(t, db, "Tea", 10)
	mocha := testutil.CreateBeverage(t, db, "Mocha", 10)
	ctx := t.Context()

	for range 2 {
		_, err := svc.Add(ctx, emp.ID, tea.ID)
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, emp.ID, mocha.ID)
	require.NoError(t, err)
	_, err = svc.Add(ctx, omar.ID, tea.ID)
	require.NoError(t, err)

	n, err := svc.Count(ctx, emp.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ids, err := svc.BeverageIDs(ctx, emp.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{tea.ID, mocha.ID}, ids)

	top, err := svc.MostFavorited(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Tea", top[0].Beverage.Name)
	assert.EqualValues(t, 2, top[0].FavoriteCount)

	require.NoError(t, svc.Remove(ctx, emp.ID, tea.ID))
	assert.True(t, apperror.Is(svc.Remove(ctx, emp.ID, tea.ID), apperror.KindNotFound))
}

func TestRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(repository.NewStore(db), testutil.Logger())
	emp := testutil.CreateUser(t, db, "sara", models.RoleEmployee)
	b := testutil.CreateBeverage(t, db, "Latte", 10)

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(testutil.Logger())})
	app.Use(func(c *fiber.Ctx) error {
		auth.SetPrincipal(c, auth.PrincipalFor(emp, 0))
		return c.Next()
	})
	Register(app.Group("/api/favorites"), svc)

	do := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/favorites/toggle", fmt.Sprintf(`{"beverage_id":%d}`, b.ID)))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, fmt.Sprintf("/api/favorites/check/%d", b.ID), ""))
	assert.Equal(t, http.StatusOK, do(http.MethodDelete, fmt.Sprintf("/api/favorites/%d", b.ID), ""))
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, fmt.Sprintf("/api/favorites/%d", b.ID), ""))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/api/favorites", `{}`))
}
