package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/pkg/queue"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/testutil"
)

// memStore 内存对象存储
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	ref := storage.Ref{Scheme: "mem", Bucket: bucket, Key: key}.String()
	s.objects[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (s *memStore) Get(ctx context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[ref]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (s *memStore) PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	r, err := storage.ParseRef(ref)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://storage.test/%s/%s?expires=%d", r.Bucket, r.Key, int(expiry.Seconds())), nil
}

func (s *memStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	return nil
}

// count 指定桶内的对象数
func (s *memStore) count(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ref := range s.objects {
		if strings.HasPrefix(ref, "mem://"+bucket+"/") {
			n++
		}
	}
	return n
}

type fakeTranscriber struct {
	result *engine.TranscribeResult
	err    error
	calls  []engine.TranscribeRequest
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req engine.TranscribeRequest) (*engine.TranscribeResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &engine.TranscribeResult{
		Text:     "hello world",
		Language: "en",
		Duration: 5,
		Segments: []model.Segment{
			{Start: 0, End: 2.5, Text: "hello"},
			{Start: 2.5, End: 5, Text: "world"},
		},
	}, nil
}

type fakeChat struct {
	prompts []string
	reply   func(prompt string) string
	err     error
	apiKeys []string
}

func (f *fakeChat) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.apiKeys = append(f.apiKeys, apiKey)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != nil {
		return f.reply(prompt), nil
	}
	return fmt.Sprintf("reply %d", len(f.prompts)), nil
}

type fakeSpeech struct {
	calls []engine.SpeechRequest
	err   error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, apiKey string, req engine.SpeechRequest) ([]byte, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ID3-fake-mp3"), nil
}

// fakeMedia 同时实现下载和抽取，写出一个假的 wav 文件
type fakeMedia struct {
	calls int
	err   error
}

func (f *fakeMedia) DownloadAudio(ctx context.Context, url, destDir string) (string, error) {
	return f.write(destDir)
}

func (f *fakeMedia) ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", err
	}
	return f.write(destDir)
}

func (f *fakeMedia) write(destDir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, "audio.wav")
	return path, os.WriteFile(path, []byte("RIFF-fake-wav"), 0644)
}

type fakeQueue struct {
	pushed []*queue.TranscriptionMessage
	err    error
}

func (f *fakeQueue) Push(ctx context.Context, msg *queue.TranscriptionMessage) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, msg)
	return nil
}

// sslError 模拟 yt-dlp / whisper 的 SSL 证书错误
func sslError() error {
	return &engine.Error{
		Category:    engine.CategorySSL,
		UserMessage: "SSL 证书校验失败",
		RawError:    errors.New("CERTIFICATE_VERIFY_FAILED"),
	}
}

type testEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	store       *memStore
	transcriber *fakeTranscriber
	chat        *fakeChat
	speech      *fakeSpeech
	media       *fakeMedia
	queue       *fakeQueue

	userRepo          *repository.UserRepository
	subRepo           *repository.SubscriptionRepository
	transcriptionRepo *repository.TranscriptionRepository
	activityRepo      *repository.ActivityRepository
	jobRepo           *repository.JobRepository
	keyRepo           *repository.APIKeyRepository

	quota         *QuotaService
	apiKeys       *APIKeyService
	transcription *TranscriptionService
	mediaSvc      *MediaService
	gpt           *GPTService
	tts           *TTSService
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret-key-for-testing",
			ExpireHours:     168,
			ResetExpireMins: 60,
		},
		Server:   config.ServerConfig{PublicBaseURL: "http://localhost:5173"},
		OpenAI:   config.OpenAIConfig{APIKey: "sk-server-key-0123456789abcdef"},
		Whisper:  config.WhisperConfig{Backend: "local"},
		Upload:   config.UploadConfig{TempDir: t.TempDir()},
		Security: config.SecurityConfig{EncryptionKey: "test-encryption-key"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	env := &testEnv{
		db:                db,
		cfg:               testConfig(t),
		store:             newMemStore(),
		transcriber:       &fakeTranscriber{},
		chat:              &fakeChat{},
		speech:            &fakeSpeech{},
		media:             &fakeMedia{},
		queue:             &fakeQueue{},
		userRepo:          repository.NewUserRepository(db),
		subRepo:           repository.NewSubscriptionRepository(db),
		transcriptionRepo: repository.NewTranscriptionRepository(db),
		activityRepo:      repository.NewActivityRepository(db),
		jobRepo:           repository.NewJobRepository(db),
		keyRepo:           repository.NewAPIKeyRepository(db),
	}

	env.quota = NewQuotaService(env.subRepo, env.transcriptionRepo, env.activityRepo, env.jobRepo)
	env.apiKeys = NewAPIKeyService(env.keyRepo, env.cfg)
	env.transcription = NewTranscriptionService(env.quota, env.apiKeys, env.transcriptionRepo, env.jobRepo,
		env.store, env.transcriber, env.queue, env.cfg)
	env.mediaSvc = NewMediaService(env.quota, env.store, env.media, env.media, env.cfg.Upload.TempDir, nil)
	env.gpt = NewGPTService(env.quota, env.apiKeys, env.transcriptionRepo, env.chat)
	env.tts = NewTTSService(env.quota, env.apiKeys, env.store, env.speech)
	return env
}

func (e *testEnv) user(t *testing.T, planName string) RequestContext {
	t.Helper()
	u := testutil.TestUser(t, e.db)
	if planName != "" && planName != "free" {
		testutil.TestSubscription(t, e.db, u.ID, planName)
	}
	return RequestContext{UserID: u.ID}
}

func (e *testEnv) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

// uploadOf 构造上传文件，size 只用于校验，内容很小
func uploadOf(name string, size int64) *UploadedFile {
	return &UploadedFile{
		Filename: name,
		Size:     size,
		Reader:   strings.NewReader("RIFF-fake-audio"),
	}
}

// fillTranscriptions 在本周期内写入 n 条转写记录
func fillTranscriptions(t *testing.T, db *gorm.DB, userID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		testutil.TestTranscription(t, db, userID)
	}
}

// failCreates 让指定表的 INSERT 全部失败
func failCreates(t *testing.T, db *gorm.DB, table string, cause error) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(cause)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}
