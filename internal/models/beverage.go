package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BeverageCategory string

const (
	CategoryCoffee   BeverageCategory = "coffee"
	CategoryTea      BeverageCategory = "tea"
	CategoryJuice    BeverageCategory = "juice"
	CategorySmoothie BeverageCategory = "smoothie"
	CategoryOther    BeverageCategory = "other"
)

type CaffeineLevel string

const (
	CaffeineNone   CaffeineLevel = "none"
	CaffeineLow    CaffeineLevel = "low"
	CaffeineMedium CaffeineLevel = "medium"
	CaffeineHigh   CaffeineLevel = "high"
)

type StockStatus string

const (
	StockIn  StockStatus = "in"
	StockLow StockStatus = "low"
	StockOut StockStatus = "out"
)

const (
	DefaultMinStockAlert = 10
	DefaultUnit          = "cup"
)

type Beverage struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"size:100;not null" json:"name"`
	Category      BeverageCategory `gorm:"size:20;index;not null" json:"category"`
	Description   *string          `gorm:"size:500" json:"description"`
	ImageURL      *string          `gorm:"size:500" json:"image_url"`
	StockQuantity int              `gorm:"not null;default:0" json:"stock_quantity"`
	Unit          string           `gorm:"size:20;not null" json:"unit"`
	MinStockAlert int              `gorm:"not null" json:"min_stock_alert"`
	UnitPrice     decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:0" json:"unit_price"`
	CaffeineLevel CaffeineLevel    `gorm:"size:10;not null;default:'none'" json:"caffeine_level"`
	IsActive      bool             `gorm:"index;not null;default:true" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (b *Beverage) IsOutOfStock() bool {
	return b.StockQuantity == 0
}

func (b *Beverage) IsLowStock() bool {
	return b.StockQuantity > 0 && b.StockQuantity <= b.MinStockAlert
}

func (b *Beverage) StockStatus() StockStatus {
	switch {
	case b.IsOutOfStock():
		return StockOut
	case b.IsLowStock():
		return StockLow
	default:
		return StockIn
	}
}

// BeverageRef is the slice of a beverage embedded in other responses.
type BeverageRef struct {
	ID       uint             `json:"id"`
	Name     string           `json:"name"`
	Category BeverageCategory `json:"category"`
}

func (b *Beverage) Ref() *BeverageRef {
	if b == nil || b.ID == 0 {
		return nil
	}
	return &BeverageRef{ID: b.ID, Name: b.Name, Category: b.Category}
}

func ValidCategory(c BeverageCategory) bool {
	switch c {
	case CategoryCoffee, CategoryTea, CategoryJuice, CategorySmoothie, CategoryOther:
		return true
	}
	return false
}

func ValidCaffeineLevel(l CaffeineLevel) bool {
	switch l {
	case CaffeineNone, CaffeineLow, CaffeineMedium, CaffeineHigh:
		return true
	}
	return false
}

func ValidStockStatus(s StockStatus) bool {
	return s == StockIn || s == StockLow || s == StockOut
}
