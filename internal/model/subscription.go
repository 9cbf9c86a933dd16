package model

import (
	"time"
)

type Subscription struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	UserID    int64      `gorm:"not null;index" json:"user_id"`
	Plan      string     `gorm:"size:20;not null" json:"plan"` // free, standard, premium
	Active    bool       `gorm:"default:true;index" json:"active"`
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
