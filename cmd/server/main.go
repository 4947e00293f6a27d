package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"beverage-backend/internal/auth"
	"beverage-backend/internal/beverage"
	"beverage-backend/internal/config"
	"beverage-backend/internal/database"
	"beverage-backend/internal/events"
	"beverage-backend/internal/favorite"
	"beverage-backend/internal/lock"
	"beverage-backend/internal/logging"
	"beverage-backend/internal/metrics"
	"beverage-backend/internal/models"
	"beverage-backend/internal/order"
	"beverage-backend/internal/rating"
	"beverage-backend/internal/realtime"
	"beverage-backend/internal/report"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/response"
	"beverage-backend/internal/seed"
	"beverage-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)
	store := repository.NewStore(db)

	if cfg.SeedOnStart {
		data, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Run(ctx, store, data, log); err != nil {
			return err
		}
	}

	m := metrics.New()

	var rdb *redis.Client
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		locker = lock.NewRedis(rdb)
		log.WithField("addr", cfg.RedisAddr).Info("redis connected")
	}

	pub, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close()

	hub := realtime.NewHub(log, m)
	if err := hub.Start(ctx); err != nil {
		return err
	}
	defer hub.Stop()

	var broadcaster realtime.Broadcaster = hub
	if rdb != nil {
		relay := realtime.NewRedisBroadcaster(rdb, realtime.DefaultRedisChannel, hub, log)
		if err := relay.Start(ctx); err != nil {
			return err
		}
		defer relay.Stop()
		broadcaster = relay
	}
	notifier := realtime.NewNotifier(broadcaster, log, m)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	authSvc := auth.NewService(store, tokens, log)
	userSvc := user.NewService(store, log)
	beverageSvc := beverage.NewService(store, notifier, pub, log)
	orderSvc := order.NewService(order.Deps{
		Store:    store,
		Locker:   locker,
		Notifier: notifier,
		Events:   pub,
		Metrics:  m,
		Log:      log,
		Location: cfg.Location,
	})
	ratingSvc := rating.NewService(store, log)
	favoriteSvc := favorite.NewService(store, log)
	reportSvc := report.NewService(store, beverageSvc, hub, cfg.Location, log)

	app := fiber.New(fiber.Config{
		AppName:      "beverage-backend",
		ErrorHandler: response.ErrorHandler(log),
		BodyLimit:    1 << 20,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(logging.Middleware(log, auth.CtxUserIDKey))
	app.Use(m.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	jwt := auth.JWTMiddleware(authSvc)
	app.Get("/ws", jwt, realtime.Upgrade(identify), hub.Handler())

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if err := store.Ping(c.UserContext()); err != nil {
			log.WithError(err).Warn("health check: database unreachable")
			status = "degraded"
		}
		return response.Success(c, fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, "Beverage service is running")
	})

	api.Post("/auth/login", auth.LoginHandler(authSvc))
	api.Post("/auth/logout", jwt, auth.LogoutHandler(authSvc))
	api.Get("/auth/me", jwt, auth.MeHandler(authSvc))

	users := api.Group("/users", jwt, auth.RequireRole(models.RoleAdmin))
	user.Register(users, userSvc)
	beverage.Register(api.Group("/beverages", jwt), beverageSvc, store.Inventory, cfg.Location)
	order.Register(api.Group("/orders", jwt), orderSvc)
	rating.Register(api.Group("/ratings", jwt), ratingSvc)
	favorite.Register(api.Group("/favorites", jwt), favoriteSvc)
	report.Register(api.Group("/reports", jwt), reportSvc)

	app.Use(func(c *fiber.Ctx) error {
		return response.Error(c, fiber.StatusNotFound, "Route not found", nil)
	})

	errc := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("http server listening")
		errc <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func identify(c *fiber.Ctx) (realtime.Identity, bool) {
	p, ok := auth.Current(c)
	if !ok {
		return realtime.Identity{}, false
	}
	return realtime.Identity{UserID: p.UserID, Role: p.Role, Name: p.FullName}, true
}

func newPublisher(cfg *config.Config, log logrus.FieldLogger) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case "kafka":
		p := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, log)
		p.Start()
		log.WithField("topic", cfg.KafkaTopic).Info("publishing events to kafka")
		return p, nil
	case "amqp":
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		log.WithField("exchange", cfg.AMQPExchange).Info("publishing events to amqp")
		return p, nil
	default:
		return events.Noop{}, nil
	}
}
