package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptflow/server/config"
)

// memBackend 内存后端，可注入写入失败
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (m *memBackend) Scheme() string { return "mem" }

func (m *memBackend) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memBackend) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (m *memBackend) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return "https://mem.example/" + bucket + "/" + key + "?expires=" + expiry.String(), nil
}

func (m *memBackend) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func TestParseRef(t *testing.T) {
	r, err := ParseRef("minio://audio-files/7/talk.wav")
	require.NoError(t, err)
	assert.Equal(t, Ref{Scheme: "minio", Bucket: "audio-files", Key: "7/talk.wav"}, r)
	assert.Equal(t, "minio://audio-files/7/talk.wav", r.String())

	for _, bad := range []string{"", "audio-files/7/x", "://b/k", "local://bucket", "local:///key"} {
		_, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrInvalidRef, bad)
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "12/meeting.wav", ObjectKey(12, "meeting.wav"))
	// 只保留文件名部分
	assert.Equal(t, "12/passwd", ObjectKey(12, "../../etc/passwd"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", ContentTypeFor("a.WAV"))
	assert.Equal(t, "audio/mpeg", ContentTypeFor("a.mp3"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentTypeFor("a.txt"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.bin"))
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, BucketAudio, "3/a.wav", []byte("RIFF"), "audio/wav"))

	_, err := os.Stat(filepath.Join(root, BucketAudio, "3", "a.wav"))
	require.NoError(t, err)

	data, err := s.Get(ctx, BucketAudio, "3/a.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	_, err = s.PresignedURL(ctx, BucketAudio, "3/a.wav", time.Hour)
	assert.ErrorIs(t, err, ErrPresignUnsupported)

	require.NoError(t, s.Delete(ctx, BucketAudio, "3/a.wav"))
	require.NoError(t, s.Delete(ctx, BucketAudio, "3/a.wav"))

	assert.ErrorIs(t, s.Put(ctx, BucketAudio, "../escape", []byte("x"), ""), ErrInvalidKey)
	assert.ErrorIs(t, s.Put(ctx, BucketAudio, "/abs", []byte("x"), ""), ErrInvalidKey)
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()

	t.Run("local only", func(t *testing.T) {
		s := NewFallbackStore(nil, NewLocalStore(t.TempDir()))
		assert.False(t, s.HasPrimary())

		ref, err := s.Put(ctx, BucketTranscriptions, "1/t.txt", []byte("hello"), "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "local://transcriptions/1/t.txt", ref)

		data, err := s.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("primary succeeds", func(t *testing.T) {
		mem := newMemBackend()
		s := NewFallbackStore(mem, NewLocalStore(t.TempDir()))

		ref, err := s.Put(ctx, BucketAudio, "1/a.wav", []byte("RIFF"), "audio/wav")
		require.NoError(t, err)
		assert.Equal(t, "mem://audio-files/1/a.wav", ref)

		url, err := s.PresignedURL(ctx, ref, 0)
		require.NoError(t, err)
		assert.Contains(t, url, "expires=1h0m0s")
	})

	t.Run("primary fails falls back to local", func(t *testing.T) {
		mem := newMemBackend()
		mem.putErr = errors.New("connection refused")
		root := t.TempDir()
		s := NewFallbackStore(mem, NewLocalStore(root))

		ref, err := s.Put(ctx, BucketAudio, "9/a.wav", []byte("RIFF"), "audio/wav")
		require.NoError(t, err)
		assert.Equal(t, "local://audio-files/9/a.wav", ref)

		_, err = os.Stat(filepath.Join(root, "audio-files", "9", "a.wav"))
		assert.NoError(t, err)
	})

	t.Run("promote moves local object to primary", func(t *testing.T) {
		mem := newMemBackend()
		mem.putErr = errors.New("down")
		s := NewFallbackStore(mem, NewLocalStore(t.TempDir()))

		ref, err := s.Put(ctx, BucketAudio, "2/a.wav", []byte("RIFF"), "audio/wav")
		require.NoError(t, err)

		mem.putErr = nil
		newRef, err := s.Promote(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "mem://audio-files/2/a.wav", newRef)

		_, err = s.Get(ctx, ref)
		assert.Error(t, err)

		data, err := s.Get(ctx, newRef)
		require.NoError(t, err)
		assert.Equal(t, "RIFF", string(data))
	})

	t.Run("unknown scheme", func(t *testing.T) {
		s := NewFallbackStore(nil, NewLocalStore(t.TempDir()))
		_, err := s.Get(ctx, "minio://audio-files/1/a.wav")
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})
}

func TestNewFromConfig_LocalBackend(t *testing.T) {
	s := NewFromConfig(context.Background(), &config.StorageConfig{
		Backend:   "local",
		LocalRoot: t.TempDir(),
	})
	assert.False(t, s.HasPrimary())

	// 未配置 endpoint 的 minio 退化为本地
	s = NewFromConfig(context.Background(), &config.StorageConfig{
		Backend:   "minio",
		LocalRoot: t.TempDir(),
	})
	assert.False(t, s.HasPrimary())
}
