package engine

import (
	"github.com/transcriptflow/server/config"
)

// NewTranscriber 按 whisper.backend 选择本地命令行或 OpenAI 接口
func NewTranscriber(cfg *config.Config, oa *OpenAI) Transcriber {
	if cfg.Whisper.Backend == "openai" {
		return oa
	}
	w := cfg.Whisper
	return NewLocalWhisper(w.Command, w.Device, w.ModelDir, w.TimeoutMin)
}
