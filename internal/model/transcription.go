package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Segment 带时间戳的转写片段（秒）
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcription struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	UserID    int64          `gorm:"not null;index" json:"user_id"`
	Filename  string         `gorm:"size:255;not null" json:"filename"`
	Duration  float64        `json:"duration"`
	ModelUsed string         `gorm:"size:20" json:"model_used"`
	Task      string         `gorm:"size:20" json:"task"` // transcribe, translate
	Language  string         `gorm:"size:20" json:"language,omitempty"`
	Text      string         `gorm:"type:text" json:"text"`
	Segments  datatypes.JSON `json:"segments,omitempty"`
	ObjectRef string         `gorm:"size:500" json:"object_ref,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	// 用户删除历史只做软删除，额度统计仍计入
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Transcription) TableName() string {
	return "transcriptions"
}
