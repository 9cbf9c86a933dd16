package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/transcriptflow/server/internal/model"
)

// LocalWhisper 调用本机 whisper 命令行，输出 JSON 后解析
type LocalWhisper struct {
	command  string
	device   string
	modelDir string
	timeout  time.Duration
	run      commandRunner
}

func NewLocalWhisper(command, device, modelDir string, timeoutMinutes int) *LocalWhisper {
	if command == "" {
		command = "whisper"
	}
	if timeoutMinutes <= 0 {
		timeoutMinutes = 60
	}
	return &LocalWhisper{
		command:  command,
		device:   device,
		modelDir: modelDir,
		timeout:  time.Duration(timeoutMinutes) * time.Minute,
		run:      execRunner,
	}
}

type whisperJSON struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (w *LocalWhisper) args(req TranscribeRequest, outDir string) []string {
	args := []string{
		req.AudioPath,
		"--model", req.Model,
		"--task", req.Task(),
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
		"--temperature", "0",
		"--beam_size", "5",
		"--best_of", "5",
	}
	if w.device != "" {
		args = append(args, "--device", w.device)
	}
	if w.modelDir != "" {
		args = append(args, "--model_dir", w.modelDir)
	}
	return args
}

func (w *LocalWhisper) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, &Error{Category: CategoryMedia, UserMessage: "音频文件不存在", RawError: err}
	}

	outDir, err := os.MkdirTemp("", "whisper_*")
	if err != nil {
		return nil, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	output, err := w.run(runCtx, w.command, w.args(req, outDir)...)
	if err != nil {
		if runCtx.Err() != nil {
			err = runCtx.Err()
		}
		return nil, classifyError("whisper", string(output), err)
	}

	base := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, classifyError("whisper", string(output), fmt.Errorf("read whisper output: %w", err))
	}
	return parseWhisperJSON(data)
}

func parseWhisperJSON(data []byte) (*TranscribeResult, error) {
	var parsed whisperJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	result := &TranscribeResult{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Segments: make([]model.Segment, 0, len(parsed.Segments)),
	}
	for _, s := range parsed.Segments {
		result.Segments = append(result.Segments, model.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
		if s.End > result.Duration {
			result.Duration = s.End
		}
	}
	return result, nil
}
