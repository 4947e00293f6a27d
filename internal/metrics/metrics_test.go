package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	"beverage-backend/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.OrderEvent("created")
		c.LimitRejected()
		c.LowStockAlert()
		c.ConnectionOpened("admin")
		c.ConnectionClosed("admin")
		c.NotificationSent("new_order")
	})
}

func TestCounters(t *testing.T) {
	c := New()
	c.OrderEvent("created")
	c.OrderEvent("created")
	c.OrderEvent("fulfilled")
	c.LimitRejected()
	c.ConnectionOpened("employee")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.orders.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.orders.WithLabelValues("fulfilled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.limitRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wsConnections.WithLabelValues("employee")))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	c := New()
	app := fiber.New()
	app.Use(c.Middleware())
	app.Get("/api/beverages/:id", func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/api/beverages/7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/beverages/:id", "204")))
}

func TestMiddlewareLabelsErrorStatus(t *testing.T) {
	c := New()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			if ae, ok := apperror.As(err); ok {
				return ctx.SendStatus(ae.Status)
			}
			return ctx.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(c.Middleware())
	app.Post("/api/orders", func(*fiber.Ctx) error { return apperror.Conflict("daily order limit") })
	app.Get("/boom", func(*fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest("POST", "/api/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/api/orders", "409")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/api/orders", "200")))

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/boom", "500")))
}
