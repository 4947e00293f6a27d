// Package audit keeps the append-only inventory ledger.
package audit

import (
	"context"
	"fmt"
	"strings"

	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
)

type LogOptions struct {
	BeverageID  uint
	Type        models.TransactionType
	Quantity    int
	Reason      string
	OrderID     *uint
	PerformedBy uint
}

// WriteLog appends one ledger row through repo, which may be bound to the
// caller's transaction.
func WriteLog(ctx context.Context, repo repository.InventoryRepository, opts LogOptions) (*models.InventoryTransaction, error) {
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", opts.Type)
	}
	tx := &models.InventoryTransaction{
		BeverageID:      opts.BeverageID,
		TransactionType: opts.Type,
		Quantity:        opts.Quantity,
		OrderID:         opts.OrderID,
		PerformedBy:     opts.PerformedBy,
	}
	if r := strings.TrimSpace(opts.Reason); r != "" {
		tx.Reason = &r
	}
	if err := repo.Record(ctx, tx); err != nil {
		return nil, fmt.Errorf("inventory transaction not recorded: %w", err)
	}
	return tx, nil
}

// OrderDeduction is the ledger entry written when an order is fulfilled.
// delta is the stock actually removed, so an order served from empty stock
// records zero.
func OrderDeduction(beverageID, orderID, performedBy uint, delta int) LogOptions {
	return LogOptions{
		BeverageID:  beverageID,
		Type:        models.TxOrderDeduction,
		Quantity:    delta,
		Reason:      fmt.Sprintf("Order #%d fulfilled", orderID),
		OrderID:     &orderID,
		PerformedBy: performedBy,
	}
}
