package model

import (
	"time"
)

// 活动类型
const (
	ActivityTranscription     = "transcription"
	ActivityYoutubeExtraction = "youtube_extraction"
	ActivityVideoExtraction   = "video_extraction"
	ActivityTTSGeneration     = "tts_generation"
	ActivityGPTRequest        = "gpt_request"
)

// ActivityTypes 全部活动类型，仪表盘按此顺序输出
var ActivityTypes = []string{
	ActivityTranscription,
	ActivityYoutubeExtraction,
	ActivityVideoExtraction,
	ActivityTTSGeneration,
	ActivityGPTRequest,
}

// UserActivity 只追加的用量日志
type UserActivity struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"not null;index:idx_activity_user_type_time" json:"user_id"`
	ActivityType string    `gorm:"size:30;not null;index:idx_activity_user_type_time" json:"activity_type"`
	Quantity     int       `gorm:"default:1" json:"quantity"` // TTS 记录字符数
	Details      string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt    time.Time `gorm:"index:idx_activity_user_type_time" json:"created_at"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
