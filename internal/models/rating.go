package models

import "time"

const (
	MinRating       = 1
	MaxRating       = 5
	MaxReviewLength = 500
	// TopRatedMinCount is the number of ratings a beverage needs before it
	// is ranked among the top rated.
	TopRatedMinCount = 3
)

type Rating struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EmployeeID  uint      `gorm:"uniqueIndex:idx_ratings_employee_beverage;not null" json:"employee_id"`
	Employee    *User     `gorm:"foreignKey:EmployeeID" json:"-"`
	BeverageID  uint      `gorm:"uniqueIndex:idx_ratings_employee_beverage;index;not null" json:"beverage_id"`
	Beverage    *Beverage `gorm:"foreignKey:BeverageID" json:"-"`
	Rating      int       `gorm:"not null" json:"rating"`
	Review      *string   `gorm:"size:500" json:"review"`
	IsAnonymous bool      `gorm:"not null;default:false" json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
