package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/api/middleware"
	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/pkg/queue"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/service"
	"github.com/transcriptflow/server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTranscriber struct {
	err   error
	calls int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, req engine.TranscribeRequest) (*engine.TranscribeResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &engine.TranscribeResult{
		Text:     "hello world",
		Language: "en",
		Duration: 5,
		Segments: []model.Segment{{Start: 0, End: 5, Text: "hello world"}},
	}, nil
}

type stubChat struct{}

func (stubChat) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	return "alpha, beta", nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(ctx context.Context, apiKey string, req engine.SpeechRequest) ([]byte, error) {
	return []byte("ID3-fake-mp3"), nil
}

type stubMedia struct{}

func (stubMedia) DownloadAudio(ctx context.Context, url, destDir string) (string, error) {
	return "", &engine.Error{Category: engine.CategoryNetwork, UserMessage: "下载失败，请检查链接"}
}

func (stubMedia) ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error) {
	return "", &engine.Error{Category: engine.CategoryMedia, UserMessage: "视频解码失败"}
}

type memQueue struct {
	pushed []*queue.TranscriptionMessage
}

func (q *memQueue) Push(ctx context.Context, msg *queue.TranscriptionMessage) error {
	q.pushed = append(q.pushed, msg)
	return nil
}

// handlerEnv 真实的 service 栈，外部引擎替换为桩
type handlerEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	transcriber *stubTranscriber
	queue       *memQueue
	userRepo    *repository.UserRepository
	quota       *service.QuotaService
	apiKeys     *service.APIKeyService
	store       storage.Store
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "test-secret-key", ExpireHours: 24, ResetExpireMins: 60},
		OpenAI:   config.OpenAIConfig{APIKey: "sk-server-key-0123456789abcdef"},
		Whisper:  config.WhisperConfig{Backend: "local"},
		Upload:   config.UploadConfig{TempDir: t.TempDir()},
		Security: config.SecurityConfig{EncryptionKey: "test-encryption-key"},
	}

	subRepo := repository.NewSubscriptionRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	jobRepo := repository.NewJobRepository(db)

	env := &handlerEnv{
		db:          db,
		cfg:         cfg,
		transcriber: &stubTranscriber{},
		queue:       &memQueue{},
		userRepo:    repository.NewUserRepository(db),
		quota:       service.NewQuotaService(subRepo, transcriptionRepo, activityRepo, jobRepo),
		store:       storage.NewFallbackStore(nil, storage.NewLocalStore(t.TempDir())),
	}
	env.apiKeys = service.NewAPIKeyService(repository.NewAPIKeyRepository(db), cfg)
	return env
}

func (e *handlerEnv) transcriptionService() *service.TranscriptionService {
	return service.NewTranscriptionService(e.quota, e.apiKeys,
		repository.NewTranscriptionRepository(e.db), repository.NewJobRepository(e.db),
		e.store, e.transcriber, e.queue, e.cfg)
}

func (e *handlerEnv) historyService() *service.HistoryService {
	return service.NewHistoryService(repository.NewTranscriptionRepository(e.db), e.store)
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func mockAdmin(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.IsAdminKey, true)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody io.Reader = bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// uploadRequest 构造 multipart 请求
func uploadRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// performUpload 发送 multipart 请求
func performUpload(t *testing.T, r http.Handler, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, path, filename, content, fields))
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap 响应 data 转为 map
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
