package model

import (
	"time"
)

type User struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        *string    `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	GithubID     *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	AvatarURL    string     `gorm:"size:500" json:"avatar_url"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
