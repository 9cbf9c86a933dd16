package model

import (
	"time"
)

// 异步任务状态
const (
	JobPending = "pending"
	JobStarted = "started"
	JobSuccess = "success"
	JobFailure = "failure"
)

type TranscriptionJob struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	TaskID          string     `gorm:"size:36;uniqueIndex;not null" json:"task_id"`
	UserID          int64      `gorm:"not null;index" json:"user_id"`
	AudioRef        string     `gorm:"size:500;not null" json:"audio_ref"`
	Filename        string     `gorm:"size:255;not null" json:"filename"`
	Model           string     `gorm:"size:20;not null" json:"model"`
	Translate       bool       `json:"translate"`
	Status          string     `gorm:"size:20;default:pending;index" json:"status"`
	CurrentStep     string     `gorm:"size:200" json:"current_step,omitempty"`
	TranscriptionID *int64     `json:"transcription_id,omitempty"`
	ErrorKind       string     `gorm:"size:20" json:"error_kind,omitempty"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds  int        `json:"elapsed_seconds,omitempty"`
}

func (TranscriptionJob) TableName() string {
	return "transcription_jobs"
}
