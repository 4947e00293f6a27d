package auth

import (
	"strings"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserRoleKey  = "user_role"
	CtxPrincipalKey = "principal"
)

// JWTMiddleware accepts "Authorization: Bearer <token>" or, for websocket
// upgrades that cannot set headers, a "token" query parameter.
func JWTMiddleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return err
		}

		p, err := svc.Authenticate(c.UserContext(), tokenStr)
		if err != nil {
			return err
		}

		SetPrincipal(c, p)
		return c.Next()
	}
}

// SetPrincipal stores the caller in the request locals read by the guards.
func SetPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(CtxUserIDKey, p.UserID)
	c.Locals(CtxUserRoleKey, p.Role)
	c.Locals(CtxPrincipalKey, p)
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", apperror.Authentication("No token provided")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperror.Authentication("Authorization header must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Current returns the authenticated caller, if any.
func Current(c *fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(CtxPrincipalKey).(*Principal)
	return p, ok && p != nil
}

// MustCurrent is for handlers mounted behind JWTMiddleware.
func MustCurrent(c *fiber.Ctx) (*Principal, error) {
	p, ok := Current(c)
	if !ok {
		return nil, apperror.Authentication("Authentication required")
	}
	return p, nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return apperror.Authentication("Authentication required")
		}
		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return apperror.Authorization("You do not have permission to perform this action")
	}
}

func RequirePermission(perm models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := Current(c)
		if !ok {
			return apperror.Authentication("Authentication required")
		}
		if !p.Can(perm) {
			return apperror.Authorization("You do not have permission to perform this action")
		}
		return c.Next()
	}
}
