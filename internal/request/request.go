// Package request parses path, query and body input for handlers.
package request

import (
	"strconv"
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	DateLayout   = "2006-01-02"
	DefaultLimit = 20
	MaxLimit     = 100
)

// Bind decodes the JSON body into dst and validates it.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.Validation("Invalid request body")
	}
	return validation.Struct(dst)
}

// ParamID reads a positive numeric path parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("Invalid " + name)
	}
	return uint(id), nil
}

// QueryID reads an optional numeric query parameter; 0 means absent.
func QueryID(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperror.Validation("Invalid " + name)
	}
	return uint(id), nil
}

// QueryInt reads an integer query parameter clamped to [lo, hi].
func QueryInt(c *fiber.Ctx, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(name + " must be a number")
	}
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n, nil
}

// Page reads page and limit. Without a page parameter the whole result set
// is returned.
func Page(c *fiber.Ctx) (repository.Page, error) {
	if c.Query("page") == "" {
		return repository.Page{}, nil
	}
	page, err := QueryInt(c, "page", 1, 1, 1<<30)
	if err != nil {
		return repository.Page{}, err
	}
	limit, err := QueryInt(c, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		return repository.Page{}, err
	}
	return repository.Page{Page: page, Limit: limit}, nil
}

// Date parses a YYYY-MM-DD query parameter in loc. An absent value yields
// def.
func Date(c *fiber.Ctx, name string, loc *time.Location, def time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, apperror.Validation("Invalid " + name + ". Use YYYY-MM-DD")
	}
	return t, nil
}

// Bool reads true/false/1/0 query values.
func Bool(c *fiber.Ctx, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.Validation(name + " must be true or false")
	}
	return b, nil
}
