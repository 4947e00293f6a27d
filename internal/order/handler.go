package order

import (
	"time"

	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		var body CreateRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		o, err := svc.Create(c.UserContext(), p, body)
		if err != nil {
			return err
		}
		return response.Created(c, o, "Order created successfully")
	}
}

// GET /api/orders?status=pending&date=2026-03-02&employee_id=4&beverage_id=2&page=1&limit=20
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := request.Page(c)
		if err != nil {
			return err
		}
		employeeID, err := request.QueryID(c, "employee_id")
		if err != nil {
			return err
		}
		beverageID, err := request.QueryID(c, "beverage_id")
		if err != nil {
			return err
		}
		f := repository.OrderFilter{
			Status:     models.OrderStatus(c.Query("status")),
			EmployeeID: employeeID,
			BeverageID: beverageID,
			Page:       page,
		}
		day, err := request.Date(c, "date", svc.Location(), time.Time{})
		if err != nil {
			return err
		}
		if !day.IsZero() {
			from, to := models.DayRange(day, svc.Location())
			f.From, f.To = &from, &to
		}

		list, total, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}
		if page.Enabled() {
			return response.Paginated(c, list, response.NewPagination(page.Page, page.Limit, total), "Orders retrieved successfully")
		}
		return response.Success(c, list, "Orders retrieved successfully")
	}
}

func TodayOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.Today(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, list, "Today's orders retrieved successfully")
	}
}

func MyHistoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		page, err := request.Page(c)
		if err != nil {
			return err
		}
		list, total, err := svc.History(c.UserContext(), p.UserID, page)
		if err != nil {
			return err
		}
		if page.Enabled() {
			return response.Paginated(c, list, response.NewPagination(page.Page, page.Limit, total), "Order history retrieved successfully")
		}
		return response.Success(c, list, "Order history retrieved successfully")
	}
}

func MyTodayHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		list, err := svc.MyToday(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Today's orders retrieved successfully")
	}
}

func MyRemainingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		r, err := svc.RemainingToday(c.UserContext(), p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, r, "Remaining orders retrieved successfully")
	}
}

func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		o, err := svc.Get(c.UserContext(), id, p)
		if err != nil {
			return err
		}
		return response.Success(c, o, "Order retrieved successfully")
	}
}

// transition wraps the three status-changing endpoints.
func transition(message string, apply func(c *fiber.Ctx, id uint, p *auth.Principal) (*View, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		o, err := apply(c, id, p)
		if err != nil {
			return err
		}
		return response.Success(c, o, message)
	}
}

// PUT /api/orders/:id {"status": "fulfilled"}
func UpdateOrderStatusHandler(svc *Service) fiber.Handler {
	return transition("Order status updated successfully", func(c *fiber.Ctx, id uint, p *auth.Principal) (*View, error) {
		var body StatusRequest
		if err := request.Bind(c, &body); err != nil {
			return nil, err
		}
		return svc.UpdateStatus(c.UserContext(), id, body.Status, p)
	})
}

func FulfillOrderHandler(svc *Service) fiber.Handler {
	return transition("Order fulfilled successfully", func(c *fiber.Ctx, id uint, p *auth.Principal) (*View, error) {
		return svc.Fulfill(c.UserContext(), id, p)
	})
}

func CancelOrderHandler(svc *Service) fiber.Handler {
	return transition("Order cancelled successfully", func(c *fiber.Ctx, id uint, p *auth.Principal) (*View, error) {
		return svc.Cancel(c.UserContext(), id, p)
	})
}

// Register mounts the order routes on an authenticated router.
func Register(r fiber.Router, svc *Service) {
	staff := auth.RequirePermission(models.PermOrderViewAll)

	r.Post("/", auth.RequirePermission(models.PermOrderCreate), CreateOrderHandler(svc))
	r.Get("/", staff, ListOrdersHandler(svc))
	r.Get("/today", staff, TodayOrdersHandler(svc))
	r.Get("/my-history", MyHistoryHandler(svc))
	r.Get("/my-today", MyTodayHandler(svc))
	r.Get("/my-remaining", MyRemainingHandler(svc))
	r.Get("/:id", GetOrderHandler(svc))
	r.Put("/:id", auth.RequirePermission(models.PermOrderFulfill), UpdateOrderStatusHandler(svc))
	r.Patch("/:id/fulfill", auth.RequirePermission(models.PermOrderFulfill), FulfillOrderHandler(svc))
	r.Patch("/:id/cancel", CancelOrderHandler(svc))
}
