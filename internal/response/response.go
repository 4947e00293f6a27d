package response

import (
	"errors"
	"math"

	"beverage-backend/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Envelope struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	Data       any                   `json:"data,omitempty"`
	Errors     []apperror.FieldError `json:"errors,omitempty"`
	Pagination *Pagination           `json:"pagination,omitempty"`
}

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(page, limit int, total int64) *Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Pagination{
		Page:        page,
		Limit:       limit,
		TotalItems:  total,
		TotalPages:  pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

func Success(c *fiber.Ctx, data any, message string) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: true, Message: message, Data: data})
}

func Created(c *fiber.Ctx, data any, message string) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Message: message, Data: data})
}

func Paginated(c *fiber.Ctx, data any, p *Pagination, message string) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: true, Message: message, Data: data, Pagination: p})
}

func Error(c *fiber.Ctx, status int, message string, fields []apperror.FieldError) error {
	return c.Status(status).JSON(Envelope{Success: false, Message: message, Errors: fields})
}

// ErrorHandler is the single place errors become HTTP responses.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e, ok := apperror.As(err); ok {
			if e.Status >= fiber.StatusInternalServerError {
				log.WithError(err).WithFields(logrus.Fields{
					"method": c.Method(),
					"path":   c.Path(),
				}).Error("request failed")
			}
			return Error(c, e.Status, e.Message, e.Fields)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Error(c, fe.Code, fe.Message, nil)
		}

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return Error(c, fiber.StatusNotFound, "Resource not found", nil)
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return Error(c, fiber.StatusConflict, "Resource already exists", nil)
		}

		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("unexpected error")
		return Error(c, fiber.StatusInternalServerError, "Internal server error", nil)
	}
}
