package auth

import (
	"strings"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/response"
	"beverage-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apperror.Validation("Invalid request body")
		}
		body.Username = strings.TrimSpace(body.Username)
		if err := validation.Struct(body); err != nil {
			return err
		}

		result, err := svc.Login(c.UserContext(), body.Username, body.Password, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			return err
		}
		return response.Success(c, result, "Login successful")
	}
}

func LogoutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := MustCurrent(c)
		if err != nil {
			return err
		}
		if err := svc.Logout(c.UserContext(), p); err != nil {
			return err
		}
		return response.Success(c, nil, "Logged out successfully")
	}
}

func MeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := MustCurrent(c)
		if err != nil {
			return err
		}
		user, err := svc.Me(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, fiber.Map{"user": user}, "User retrieved successfully")
	}
}
