package audit

import (
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/request"
	"beverage-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

type TransactionResponse struct {
	ID              uint                   `json:"id"`
	CreatedAt       string                 `json:"created_at"`
	BeverageID      uint                   `json:"beverage_id"`
	Beverage        *models.BeverageRef    `json:"beverage,omitempty"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Quantity        int                    `json:"quantity"`
	Reason          *string                `json:"reason"`
	OrderID         *uint                  `json:"order_id"`
	PerformedBy     uint                   `json:"performed_by"`
}

// GET /api/beverages/transactions?beverage_id=1&type=stock_in&from=2026-01-01&to=2026-01-31
func ListTransactionsHandler(repo repository.InventoryRepository, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.Local
	}
	return func(c *fiber.Ctx) error {
		beverageID, err := request.QueryID(c, "beverage_id")
		if err != nil {
			return err
		}
		txType := models.TransactionType(c.Query("type"))
		if txType != "" && !txType.Valid() {
			return apperror.Validation("Invalid transaction type")
		}
		page, err := request.Page(c)
		if err != nil {
			return err
		}

		f := repository.InventoryFilter{BeverageID: beverageID, Type: txType, Page: page}
		if from, err := request.Date(c, "from", loc, time.Time{}); err != nil {
			return err
		} else if !from.IsZero() {
			f.From = &from
		}
		if to, err := request.Date(c, "to", loc, time.Time{}); err != nil {
			return err
		} else if !to.IsZero() {
			end := to.AddDate(0, 0, 1)
			f.To = &end
		}

		txs, total, err := repo.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		resp := make([]TransactionResponse, 0, len(txs))
		for _, tx := range txs {
			resp = append(resp, TransactionResponse{
				ID:              tx.ID,
				CreatedAt:       tx.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
				BeverageID:      tx.BeverageID,
				Beverage:        tx.Beverage.Ref(),
				TransactionType: tx.TransactionType,
				Quantity:        tx.Quantity,
				Reason:          tx.Reason,
				OrderID:         tx.OrderID,
				PerformedBy:     tx.PerformedBy,
			})
		}

		if page.Enabled() {
			return response.Paginated(c, resp, response.NewPagination(page.Page, page.Limit, total), "Transactions retrieved successfully")
		}
		return response.Success(c, resp, "Transactions retrieved successfully")
	}
}
