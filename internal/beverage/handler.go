package beverage

import (
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/audit"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

// GET /api/beverages?category=coffee&caffeine_level=high&active_only=true&stock_status=low&search=latte&page=1&limit=20
func ListBeveragesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := request.Page(c)
		if err != nil {
			return err
		}
		activeOnly, err := request.Bool(c, "active_only")
		if err != nil {
			return err
		}
		list, total, err := svc.List(c.UserContext(), repository.BeverageFilter{
			Category:      models.BeverageCategory(c.Query("category")),
			CaffeineLevel: models.CaffeineLevel(c.Query("caffeine_level")),
			ActiveOnly:    activeOnly,
			StockStatus:   models.StockStatus(c.Query("stock_status")),
			Search:        c.Query("search"),
			Page:          page,
		})
		if err != nil {
			return err
		}
		if page.Enabled() {
			return response.Paginated(c, list, response.NewPagination(page.Page, page.Limit, total), "Beverages retrieved successfully")
		}
		return response.Success(c, list, "Beverages retrieved successfully")
	}
}

func GetBeverageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		b, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return response.Success(c, b, "Beverage retrieved successfully")
	}
}

func CreateBeverageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		b, err := svc.Create(c.UserContext(), body)
		if err != nil {
			return err
		}
		return response.Created(c, b, "Beverage created successfully")
	}
}

func UpdateBeverageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		b, err := svc.Update(c.UserContext(), id, body, p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, b, "Beverage updated successfully")
	}
}

func DeleteBeverageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Deactivate(c.UserContext(), id); err != nil {
			return err
		}
		return response.Success(c, nil, "Beverage deactivated successfully")
	}
}

// POST /api/beverages/:id/stock {"quantity": 24, "reason": "weekly delivery", "type": "stock_in"}
func AdjustStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		var body StockRequest
		if err := request.Bind(c, &body); err != nil {
			return err
		}
		res, err := svc.AdjustStock(c.UserContext(), id, body, p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, res, "Stock adjusted successfully")
	}
}

// POST /api/beverages/stock/import (multipart, field "file", .xlsx)
func ImportStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustCurrent(c)
		if err != nil {
			return err
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return apperror.Validation("An .xlsx file is required in the \"file\" field")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return apperror.Validation("Only .xlsx files are accepted")
		}
		file, err := fh.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		res, err := svc.ImportStock(c.UserContext(), file, p.UserID)
		if err != nil {
			return err
		}
		return response.Success(c, res, "Stock import processed")
	}
}

func inventoryHandler(list func(*fiber.Ctx) ([]InventoryItem, error), message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := list(c)
		if err != nil {
			return err
		}
		return response.Success(c, items, message)
	}
}

func InventoryHandler(svc *Service) fiber.Handler {
	return inventoryHandler(func(c *fiber.Ctx) ([]InventoryItem, error) {
		return svc.Inventory(c.UserContext())
	}, "Inventory status retrieved successfully")
}

func LowStockHandler(svc *Service) fiber.Handler {
	return inventoryHandler(func(c *fiber.Ctx) ([]InventoryItem, error) {
		return svc.LowStock(c.UserContext())
	}, "Low stock beverages retrieved successfully")
}

func OutOfStockHandler(svc *Service) fiber.Handler {
	return inventoryHandler(func(c *fiber.Ctx) ([]InventoryItem, error) {
		return svc.OutOfStock(c.UserContext())
	}, "Out of stock beverages retrieved successfully")
}

// Register mounts the beverage routes on an authenticated router. Static
// paths go first so they are not captured by /:id.
func Register(r fiber.Router, svc *Service, ledger repository.InventoryRepository, loc *time.Location) {
	admin := auth.RequireRole(models.RoleAdmin)

	r.Get("/", ListBeveragesHandler(svc))
	r.Get("/inventory", admin, InventoryHandler(svc))
	r.Get("/low-stock", admin, LowStockHandler(svc))
	r.Get("/out-of-stock", admin, OutOfStockHandler(svc))
	r.Get("/transactions", admin, audit.ListTransactionsHandler(ledger, loc))
	r.Post("/stock/import", admin, ImportStockHandler(svc))
	r.Get("/:id", GetBeverageHandler(svc))

	r.Post("/", admin, CreateBeverageHandler(svc))
	r.Put("/:id", admin, UpdateBeverageHandler(svc))
	r.Delete("/:id", admin, DeleteBeverageHandler(svc))
	r.Post("/:id/stock", admin, AdjustStockHandler(svc))
}
