package rating

import (
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

// POST /api/ratings {"beverage_id": 3, "rating": 5, "review": "perfect", "is_anonymous": false}
func UpsertRatingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		var body UpsertRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		res, err := svc.Upsert(c.UserContext(), p.UserID, body)
		if err != nil {
			return err
		}
		return response.Success(c, res, "Rating saved successfully")
	}
}

func MyRatingsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		list, err := svc.Mine(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Ratings retrieved successfully")
	}
}

func TopRatedHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := request.QueryInt(c, "limit", defaultTopLimit, 1, 50)
		if err != nil {
			return err
		}
		list, err := svc.TopRated(c.UserContext(), limit)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Top rated beverages retrieved successfully")
	}
}

func StatisticsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.Statistics(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, st, "Rating statistics retrieved successfully")
	}
}

func BeverageRatingsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		res, err := svc.ForBeverage(c.UserContext(), id)
		if err != nil {
			return err
		}
		return response.Success(c, res, "Beverage ratings retrieved successfully")
	}
}

func MyBeverageRatingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		r, err := svc.Find(c.UserContext(), p.UserID, id)
		if err != nil {
			return err
		}
		return response.Success(c, r, "Rating retrieved successfully")
	}
}

func BeverageDetailsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		d, err := svc.Details(c.UserContext(), id, p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, d, "Beverage details retrieved successfully")
	}
}

func DeleteRatingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		agg, err := svc.Delete(c.UserContext(), p.UserID, id)
		if err != nil {
			return err
		}
		return response.Success(c, agg, "Rating deleted successfully")
	}
}

// Register mounts the rating routes on an authenticated router.
func Register(r fiber.Router, svc *Service) {
	write := auth.RequirePermission(models.PermRate)

	r.Post("/", write, UpsertRatingHandler(svc))
	r.Get("/my-ratings", MyRatingsHandler(svc))
	r.Get("/top-rated", TopRatedHandler(svc))
	r.Get("/statistics", StatisticsHandler(svc))
	r.Get("/beverage/:id", BeverageRatingsHandler(svc))
	r.Get("/beverage/:id/my-rating", MyBeverageRatingHandler(svc))
	r.Get("/beverage/:id/details", BeverageDetailsHandler(svc))
	r.Delete("/beverage/:id", write, DeleteRatingHandler(svc))
}
