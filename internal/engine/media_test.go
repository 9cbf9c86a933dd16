package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYtDlp_DownloadAudio(t *testing.T) {
	dir := t.TempDir()
	y := NewYtDlp("")

	var gotName string
	var gotArgs []string
	y.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, os.WriteFile(filepath.Join(dir, "downloaded_audio.wav"), []byte("RIFF"), 0644)
	}

	path, err := y.DownloadAudio(context.Background(), "https://youtu.be/abc", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "downloaded_audio.wav"), path)
	assert.Equal(t, "yt-dlp", gotName)
	assert.Equal(t, []string{"-f", "bestaudio/best", "-x", "--audio-format", "wav"}, gotArgs[:5])
	assert.Equal(t, "https://youtu.be/abc", gotArgs[len(gotArgs)-1])
}

func TestYtDlp_Failure(t *testing.T) {
	y := NewYtDlp("yt-dlp")
	y.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("ERROR: Video unavailable"), errors.New("exit status 1")
	}

	_, err := y.DownloadAudio(context.Background(), "https://youtu.be/gone", t.TempDir())
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, CategoryMedia, engineErr.Category)
}

func TestFFmpeg_ExtractAudio(t *testing.T) {
	dir := t.TempDir()
	f := NewFFmpeg("")

	var gotArgs []string
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, nil
	}

	out, err := f.ExtractAudio(context.Background(), "/videos/talk.mp4", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "talk.wav"), out)
	assert.Equal(t, []string{
		"-y", "-i", "/videos/talk.mp4", "-vn",
		"-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2",
		out,
	}, gotArgs)
}
