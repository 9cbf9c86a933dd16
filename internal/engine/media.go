package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// YtDlp 通过 yt-dlp 下载最佳音轨并转为 wav
type YtDlp struct {
	path string
	run  commandRunner
}

func NewYtDlp(path string) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	return &YtDlp{path: path, run: execRunner}
}

func (y *YtDlp) DownloadAudio(ctx context.Context, url, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	template := filepath.Join(destDir, "downloaded_audio.%(ext)s")
	output, err := y.run(ctx, y.path,
		"-f", "bestaudio/best",
		"-x", "--audio-format", "wav",
		"--no-playlist",
		"-o", template,
		url,
	)
	if err != nil {
		return "", classifyError("yt-dlp", string(output), err)
	}

	audioPath := filepath.Join(destDir, "downloaded_audio.wav")
	if _, err := os.Stat(audioPath); err != nil {
		return "", classifyError("yt-dlp", string(output), fmt.Errorf("expected output missing: %w", err))
	}
	return audioPath, nil
}

// FFmpeg 抽取视频音轨为 44.1kHz 双声道 PCM wav
type FFmpeg struct {
	path string
	run  commandRunner
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, run: execRunner}
}

func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create extract dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	out := filepath.Join(destDir, base+".wav")

	output, err := f.run(ctx, f.path,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "2",
		out,
	)
	if err != nil {
		return "", classifyError("ffmpeg", string(output), err)
	}
	return out, nil
}
