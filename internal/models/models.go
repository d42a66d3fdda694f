package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the credential record. RefreshToken and RefreshTokenExpiry hold the single
// active session; RefreshToken is nil once the user logged out.
type User struct {
	ID                 string     `gorm:"primaryKey;size:36"        json:"id"`
	Email              string     `gorm:"uniqueIndex;not null"      json:"email"`
	Username           string     `gorm:"not null"                  json:"username"`
	PasswordHash       string     `gorm:"not null"                  json:"-"`
	Role               *string    `gorm:"default:null"              json:"role,omitempty"`
	RefreshToken       *string    `gorm:"default:null"              json:"-"`
	RefreshTokenExpiry *time.Time `gorm:"default:null"              json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// RoleName returns the role or "" when none is assigned.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}
