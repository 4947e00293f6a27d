package models

import "time"

type TransactionType string

const (
	TxStockIn        TransactionType = "stock_in"
	TxStockOut       TransactionType = "stock_out"
	TxOrderDeduction TransactionType = "order_deduction"
	TxAdjustment     TransactionType = "adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxStockIn, TxStockOut, TxOrderDeduction, TxAdjustment:
		return true
	}
	return false
}

// InventoryTransaction is append-only: rows are never updated.
type InventoryTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BeverageID      uint            `gorm:"index;not null" json:"beverage_id"`
	Beverage        *Beverage       `gorm:"foreignKey:BeverageID" json:"-"`
	TransactionType TransactionType `gorm:"size:20;index;not null" json:"transaction_type"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	Reason          *string         `gorm:"size:255" json:"reason"`
	OrderID         *uint           `gorm:"index" json:"order_id"`
	PerformedBy     uint            `gorm:"not null" json:"performed_by"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}
