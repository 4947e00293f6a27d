package models

import (
	"math"
	"time"
)

type UserSession struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"index:idx_sessions_user_login;not null" json:"user_id"`
	User            *User      `gorm:"foreignKey:UserID" json:"-"`
	LoginTime       time.Time  `gorm:"index:idx_sessions_user_login;not null" json:"login_time"`
	LogoutTime      *time.Time `json:"logout_time"`
	SessionDuration *int       `json:"session_duration"` // minutes
	IPAddress       *string    `gorm:"size:64" json:"ip_address"`
	UserAgent       *string    `gorm:"size:255" json:"user_agent"`
	IsActive        bool       `gorm:"index;not null;default:true" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// End closes the session at now and records its length in whole minutes.
func (s *UserSession) End(now time.Time) {
	s.LogoutTime = &now
	s.IsActive = false
	minutes := int(math.Round(now.Sub(s.LoginTime).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	s.SessionDuration = &minutes
}
