package engine

import (
	"context"
	"os/exec"

	"github.com/transcriptflow/server/internal/model"
)

// TranscribeRequest 一次转写调用的参数
type TranscribeRequest struct {
	AudioPath string
	Model     string // tiny, base, small, medium, large
	Translate bool   // true 时输出英文翻译
	APIKey    string // 仅 openai 后端使用
}

type TranscribeResult struct {
	Text     string
	Language string
	Duration float64
	Segments []model.Segment
}

// Task 返回 whisper 的任务名
func (r TranscribeRequest) Task() string {
	if r.Translate {
		return "translate"
	}
	return "transcribe"
}

type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error)
}

type ChatCompleter interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

type SpeechRequest struct {
	Text  string
	Model string
	Voice string
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, apiKey string, req SpeechRequest) ([]byte, error)
}

// AudioDownloader 从在线视频地址下载音轨到 destDir，返回音频文件路径
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, url, destDir string) (string, error)
}

// AudioExtractor 从本地视频文件抽取音轨到 destDir，返回音频文件路径
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error)
}

// commandRunner 执行外部命令并返回合并输出，测试中替换
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
