package logging

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"beverage-backend/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const CtxRequestIDKey = "request_id"

type requestIDKey struct{}

// RequestID returns the id the middleware attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// New builds the process logger. format is "json" or "text".
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if strings.EqualFold(format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Middleware assigns a request id and logs every request once it completes.
// userIDKey names the fiber local holding the authenticated user id.
func Middleware(log logrus.FieldLogger, userIDKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(CtxRequestIDKey, reqID)
		c.Set(fiber.HeaderXRequestID, reqID)
		c.SetUserContext(context.WithValue(c.UserContext(), requestIDKey{}, reqID))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if ae, ok := apperror.As(err); ok {
				status = ae.Status
			} else if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		}
		if uid := c.Locals(userIDKey); uid != nil {
			fields["user_id"] = uid
		}
		entry := log.WithFields(fields)
		if status >= fiber.StatusInternalServerError {
			entry.Warn("request")
		} else {
			entry.Debug("request")
		}
		return err
	}
}
