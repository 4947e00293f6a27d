package favorite

import (
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

func ListFavoritesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Favorites retrieved successfully")
	}
}

func CountFavoritesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		n, err := svc.Count(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, fiber.Map{"count": n}, "Favorites count retrieved successfully")
	}
}

func FavoriteIDsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		ids, err := svc.BeverageIDs(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, ids, "Favorite beverage ids retrieved successfully")
	}
}

func MostFavoritedHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := request.QueryInt(c, "limit", defaultMostLimit, 1, 50)
		if err != nil {
			return err
		}
		list, err := svc.MostFavorited(c.UserContext(), limit)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Most favorited beverages retrieved successfully")
	}
}

func CheckFavoriteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "beverageId")
		if err != nil {
			return err
		}
		ok, err := svc.IsFavorite(c.UserContext(), p.UserID, id)
		if err != nil {
			return err
		}
		return response.Success(c, fiber.Map{"beverage_id": id, "is_favorite": ok}, "Favorite status retrieved successfully")
	}
}

// body handles the two POST routes that take {"beverage_id": n}.
func body(message string, apply func(c *fiber.Ctx, employeeID, beverageID uint) (*ToggleResult, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		var req Request
		if err := request.Bind(c, &req); err != nil {
			return err
		}
		res, err := apply(c, p.UserID, req.BeverageID)
		if err != nil {
			return err
		}
		return response.Success(c, res, message)
	}
}

func ToggleFavoriteHandler(svc *Service) fiber.Handler {
	return body("Favorite toggled successfully", func(c *fiber.Ctx, employeeID, beverageID uint) (*ToggleResult, error) {
		return svc.Toggle(c.UserContext(), employeeID, beverageID)
	})
}

func AddFavoriteHandler(svc *Service) fiber.Handler {
	return body("Added to favorites", func(c *fiber.Ctx, employeeID, beverageID uint) (*ToggleResult, error) {
		return svc.Add(c.UserContext(), employeeID, beverageID)
	})
}

func RemoveFavoriteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "beverageId")
		if err != nil {
			return err
		}
		if err := svc.Remove(c.UserContext(), p.UserID, id); err != nil {
			return err
		}
		return response.Success(c, nil, "Removed from favorites")
	}
}

// Register mounts the favorite routes on an authenticated router.
func Register(r fiber.Router, svc *Service) {
	write := auth.RequirePermission(models.PermFavorite)

	r.Get("/", ListFavoritesHandler(svc))
	r.Get("/count", CountFavoritesHandler(svc))
	r.Get("/beverage-ids", FavoriteIDsHandler(svc))
	r.Get("/most-favorited", MostFavoritedHandler(svc))
	r.Get("/check/:beverageId", CheckFavoriteHandler(svc))
	r.Post("/toggle", write, ToggleFavoriteHandler(svc))
	r.Post("/", write, AddFavoriteHandler(svc))
	r.Delete("/:beverageId", write, RemoveFavoriteHandler(svc))
}
