package user

import (
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

func ListUsersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := request.Page(c)
		if err != nil {
			return err
		}
		users, total, err := svc.List(c.UserContext(), repository.UserFilter{
			Role:   models.UserRole(c.Query("role")),
			Search: c.Query("search"),
			Page:   page,
		})
		if err != nil {
			return err
		}
		if page.Enabled() {
			return response.Paginated(c, users, response.NewPagination(page.Page, page.Limit, total), "Users retrieved successfully")
		}
		return response.Success(c, users, "Users retrieved successfully")
	}
}

func GetUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		u, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return response.Success(c, u, "User retrieved successfully")
	}
}

func CreateUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		u, err := svc.Create(c.UserContext(), body)
		if err != nil {
			return err
		}
		return response.Created(c, u, "User created successfully")
	}
}

func UpdateUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		u, err := svc.Update(c.UserContext(), id, body)
		if err != nil {
			return err
		}
		return response.Success(c, u, "User updated successfully")
	}
}

func DeleteUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		if err := svc.Deactivate(c.UserContext(), id, p.UserID); err != nil {
			return err
		}
		return response.Success(c, nil, "User deactivated successfully")
	}
}

// Register mounts the admin-only user routes on r.
func Register(r fiber.Router, svc *Service) {
	r.Get("/", ListUsersHandler(svc))
	r.Post("/", CreateUserHandler(svc))
	r.Get("/:id", GetUserHandler(svc))
	r.Put("/:id", UpdateUserHandler(svc))
	r.Delete("/:id", DeleteUserHandler(svc))
}
