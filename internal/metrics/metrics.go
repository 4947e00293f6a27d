// Package metrics exposes prometheus collectors for the API.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"beverage-backend/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry. A nil *Collector is valid and records
// nothing, so services can be built without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	orders          *prometheus.CounterVec
	limitRejections prometheus.Counter
	lowStockAlerts  prometheus.Counter
	wsConnections   *prometheus.GaugeVec
	notifications   *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beverage_orders_total",
				Help: "Order lifecycle events by resulting status",
			},
			[]string{"status"},
		),
		limitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beverage_order_limit_rejections_total",
			Help: "Orders rejected by the daily limit",
		}),
		lowStockAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beverage_low_stock_alerts_total",
			Help: "Low or out of stock alerts sent to admins",
		}),
		wsConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realtime_connections",
				Help: "Open websocket connections by role",
			},
			[]string{"role"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_notifications_total",
				Help: "Notifications broadcast by type",
			},
			[]string{"type"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.requestDuration,
		c.orders,
		c.limitRejections,
		c.lowStockAlerts,
		c.wsConnections,
		c.notifications,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records one sample per request, labelled by route pattern.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := statusOf(ctx, err)
		route := ctx.Route().Path
		c.requests.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		c.requestDuration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// statusOf resolves the status the error handler will write, since it runs
// after this middleware returns.
func statusOf(ctx *fiber.Ctx, err error) int {
	if err == nil {
		return ctx.Response().StatusCode()
	}
	var fe *fiber.Error
	if ae, ok := apperror.As(err); ok {
		return ae.Status
	} else if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func (c *Collector) OrderEvent(status string) {
	if c == nil {
		return
	}
	c.orders.WithLabelValues(status).Inc()
}

func (c *Collector) LimitRejected() {
	if c == nil {
		return
	}
	c.limitRejections.Inc()
}

func (c *Collector) LowStockAlert() {
	if c == nil {
		return
	}
	c.lowStockAlerts.Inc()
}

func (c *Collector) ConnectionOpened(role string) {
	if c == nil {
		return
	}
	c.wsConnections.WithLabelValues(role).Inc()
}

func (c *Collector) ConnectionClosed(role string) {
	if c == nil {
		return
	}
	c.wsConnections.WithLabelValues(role).Dec()
}

func (c *Collector) NotificationSent(kind string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind).Inc()
}
