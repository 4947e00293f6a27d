package report

import (
	"bytes"
	"io"
	"time"

	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

func DashboardHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := svc.Dashboard(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, d, "Dashboard retrieved successfully")
	}
}

func PopularHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := request.QueryInt(c, "limit", defaultPopularLimit, 1, 100)
		if err != nil {
			return err
		}
		days, err := request.QueryInt(c, "days", defaultDays, 1, 365)
		if err != nil {
			return err
		}
		list, err := svc.Popular(c.UserContext(), days, limit)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Popular beverages retrieved successfully")
	}
}

func InventoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.Inventory(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, list, "Inventory report retrieved successfully")
	}
}

// daysHandler covers the reports that only take ?days.
func daysHandler[T any](message string, fn func(c *fiber.Ctx, days int) (T, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days, err := request.QueryInt(c, "days", defaultDays, 1, 365)
		if err != nil {
			return err
		}
		data, err := fn(c, days)
		if err != nil {
			return err
		}
		return response.Success(c, data, message)
	}
}

func ConsumptionHandler(svc *Service) fiber.Handler {
	return daysHandler("Consumption report retrieved successfully", func(c *fiber.Ctx, days int) ([]DayCount, error) {
		return svc.Consumption(c.UserContext(), days)
	})
}

func EmployeeStatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.EmployeeStats(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, list, "Employee statistics retrieved successfully")
	}
}

func TopConsumersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := request.QueryInt(c, "limit", defaultTopConsumers, 1, 100)
		if err != nil {
			return err
		}
		list, err := svc.TopConsumers(c.UserContext(), limit)
		if err != nil {
			return err
		}
		return response.Success(c, list, "Top consumers retrieved successfully")
	}
}

func FastMovingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.FastMoving(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, list, "Fast moving items retrieved successfully")
	}
}

func EmployeeActivityHandler(svc *Service) fiber.Handler {
	return daysHandler("Employee activity retrieved successfully", func(c *fiber.Ctx, days int) (fiber.Map, error) {
		list, err := svc.EmployeeActivity(c.UserContext(), days)
		return fiber.Map{"activityData": list}, err
	})
}

func DailyLoginsHandler(svc *Service) fiber.Handler {
	return daysHandler("Daily login statistics retrieved successfully", func(c *fiber.Ctx, days int) (fiber.Map, error) {
		list, err := svc.DailyLogins(c.UserContext(), days)
		return fiber.Map{"loginStats": list}, err
	})
}

func OnlineUsersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		online, err := svc.OnlineUsers(c.UserContext())
		if err != nil {
			return err
		}
		return response.Success(c, fiber.Map{"onlineUsers": online}, "Online users retrieved successfully")
	}
}

func StockFlowHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days, err := request.QueryInt(c, "days", defaultDays, 1, 365)
		if err != nil {
			return err
		}
		beverageID, err := request.QueryID(c, "beverage_id")
		if err != nil {
			return err
		}
		flow, err := svc.StockFlow(c.UserContext(), days, beverageID)
		if err != nil {
			return err
		}
		return response.Success(c, fiber.Map{"stockFlow": flow}, "Stock flow retrieved successfully")
	}
}

func InventoryTurnoverHandler(svc *Service) fiber.Handler {
	return daysHandler("Inventory turnover retrieved successfully", func(c *fiber.Ctx, days int) (fiber.Map, error) {
		list, err := svc.InventoryTurnover(c.UserContext(), days)
		return fiber.Map{"turnoverData": list}, err
	})
}

func AnalyticsHandler(svc *Service) fiber.Handler {
	return daysHandler("Analytics retrieved successfully", func(c *fiber.Ctx, days int) (*Analytics, error) {
		return svc.Analytics(c.UserContext(), days)
	})
}

// exportHandler renders the ?date day (today by default) into a buffer
// first so failures still produce a JSON error envelope.
func exportHandler(svc *Service, ext, contentType string, render func(w io.Writer, date time.Time, orders []models.Order) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := svc.Location()
		date, err := request.Date(c, "date", loc, models.StartOfDay(svc.now(), loc))
		if err != nil {
			return err
		}
		orders, err := svc.DayOrders(c.UserContext(), date)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := render(&buf, date, orders); err != nil {
			return err
		}
		c.Attachment(ExportFilename(date, ext))
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(buf.Bytes())
	}
}

func ExportPDFHandler(svc *Service) fiber.Handler {
	return exportHandler(svc, "pdf", PDFContentType, WritePDF)
}

func ExportExcelHandler(svc *Service) fiber.Handler {
	return exportHandler(svc, "xlsx", ExcelContentType, func(w io.Writer, _ time.Time, orders []models.Order) error {
		return WriteExcel(w, svc.Location(), orders)
	})
}

// Register mounts the report routes on an authenticated router.
func Register(r fiber.Router, svc *Service) {
	r.Use(auth.RequirePermission(models.PermReportView))

	r.Get("/dashboard", DashboardHandler(svc))
	r.Get("/popular", PopularHandler(svc))
	r.Get("/inventory", InventoryHandler(svc))
	r.Get("/consumption", ConsumptionHandler(svc))
	r.Get("/employee-stats", EmployeeStatsHandler(svc))
	r.Get("/top-consumers", TopConsumersHandler(svc))
	r.Get("/fast-moving", FastMovingHandler(svc))
	r.Get("/employee-activity", EmployeeActivityHandler(svc))
	r.Get("/daily-logins", DailyLoginsHandler(svc))
	r.Get("/online-users", OnlineUsersHandler(svc))
	r.Get("/stock-flow", StockFlowHandler(svc))
	r.Get("/inventory-turnover", InventoryTurnoverHandler(svc))
	r.Get("/analytics", AnalyticsHandler(svc))
	r.Get("/export/pdf", ExportPDFHandler(svc))
	r.Get("/export/excel", ExportExcelHandler(svc))
}
