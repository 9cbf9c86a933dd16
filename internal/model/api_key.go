package model

import (
	"time"
)

type APIKey struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_api_key_user_service" json:"user_id"`
	Service   string    `gorm:"size:30;not null;uniqueIndex:idx_api_key_user_service" json:"service"`
	KeyValue  string    `gorm:"type:text;not null" json:"-"` // 加密后的值
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}
