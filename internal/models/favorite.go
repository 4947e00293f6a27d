package models

import "time"

type Favorite struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `gorm:"uniqueIndex:idx_favorites_employee_beverage;not null" json:"employee_id"`
	BeverageID uint      `gorm:"uniqueIndex:idx_favorites_employee_beverage;index;not null" json:"beverage_id"`
	Beverage   *Beverage `gorm:"foreignKey:BeverageID" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
