package model

import "time"

// Role decides which routes a member may call.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Member is a registered account.
type Member struct {
	ID           int64  `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:256;not null"`
	PasswordHash string `gorm:"size:256;not null"`
	Name         string `gorm:"size:128;not null"`
	Role         Role   `gorm:"size:16;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
