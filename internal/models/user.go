package models

import "time"

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleEmployee  UserRole = "employee"
	RoleOfficeBoy UserRole = "office_boy"
)

var AllRoles = []UserRole{RoleAdmin, RoleEmployee, RoleOfficeBoy}

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleOfficeBoy:
		return true
	}
	return false
}

// IsStaff reports whether the role fulfills orders.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleOfficeBoy
}

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	FullName      string     `gorm:"size:100;not null" json:"full_name"`
	Email         string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Department    *string    `gorm:"size:100" json:"department"`
	Role          UserRole   `gorm:"size:20;index;not null" json:"role"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin     *time.Time `json:"last_login"`
	WorkStartTime *string    `gorm:"size:5" json:"work_start_time"`
	WorkEndTime   *string    `gorm:"size:5" json:"work_end_time"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UserRef is the slice of a user embedded in other responses.
type UserRef struct {
	ID         uint    `json:"id"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Department *string `json:"department"`
}

func (u *User) Ref() *UserRef {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &UserRef{ID: u.ID, FullName: u.FullName, Email: u.Email, Department: u.Department}
}
