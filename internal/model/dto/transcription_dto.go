package dto

import "github.com/transcriptflow/server/internal/model"

// TranscribeFromRefRequest 对已上传/抽取的音频发起转写
type TranscribeFromRefRequest struct {
	AudioRef  string `json:"audio_ref"`
	Model     string `json:"model"`
	Translate bool   `json:"translate"`
	Async     bool   `json:"async"`
}

type TranscriptionResponse struct {
	ID        int64           `json:"id"`
	Filename  string          `json:"filename"`
	Text      string          `json:"text"`
	Language  string          `json:"language,omitempty"`
	Duration  float64         `json:"duration"`
	Model     string          `json:"model"`
	Task      string          `json:"task"`
	Segments  []model.Segment `json:"segments"`
	ObjectRef string          `json:"object_ref,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type TranscriptionListItem struct {
	ID        int64   `json:"id"`
	Filename  string  `json:"filename"`
	Duration  float64 `json:"duration"`
	Model     string  `json:"model"`
	Task      string  `json:"task"`
	Language  string  `json:"language,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// TaskHandle 异步任务句柄
type TaskHandle struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskStatus 异步任务状态，status 为 pending/started/success/failure
type TaskStatus struct {
	TaskID         string                 `json:"task_id"`
	Status         string                 `json:"status"`
	Step           string                 `json:"step,omitempty"`
	Result         *TranscriptionResponse `json:"result,omitempty"`
	ErrorKind      string                 `json:"error_kind,omitempty"`
	Error          string                 `json:"error,omitempty"`
	ElapsedSeconds int                    `json:"elapsed_seconds,omitempty"`
}

type ChaptersResponse struct {
	TranscriptionID int64    `json:"transcription_id"`
	Chapters        []string `json:"chapters"`
}

type ExportResponse struct {
	ObjectRef   string `json:"object_ref"`
	DownloadURL string `json:"download_url,omitempty"`
}
