package handler

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/testutil"
)

func setupTranscriptionRouter(t *testing.T, env *handlerEnv, userID int64) *gin.Engine {
	t.Helper()
	h := NewTranscriptionHandler(env.transcriptionService())

	router := gin.New()
	router.Use(mockAuth(userID))
	router.POST("/transcriptions", h.Upload)
	router.POST("/transcriptions/from-ref", h.FromRef)
	router.GET("/transcriptions/tasks/:task_id", h.GetTask)
	return router
}

func TestTranscriptionHandler_Upload_Sync(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	w := performUpload(t, router, "/transcriptions", "meeting.wav", []byte("RIFF-audio"), map[string]string{"model": "base"})
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "hello world", data["text"])
	assert.Equal(t, "meeting.wav", data["filename"])
	assert.Equal(t, "transcribe", data["task"])
	segments, ok := data["segments"].([]interface{})
	require.True(t, ok)
	assert.Len(t, segments, 1)
}

func TestTranscriptionHandler_Upload_MissingFile(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performUpload(t, router, "/transcriptions", "", nil, map[string]string{"model": "base"}))
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestTranscriptionHandler_Upload_UnsupportedFormat(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performUpload(t, router, "/transcriptions", "notes.pdf", []byte("%PDF"), nil))
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestTranscriptionHandler_Upload_ModelNotAllowed(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performUpload(t, router, "/transcriptions", "a.wav", []byte("RIFF"), map[string]string{"model": "large"}))
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestTranscriptionHandler_Upload_QuotaExceeded(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	for i := 0; i < 30; i++ {
		testutil.TestTranscription(t, env.db, user.ID)
	}
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performUpload(t, router, "/transcriptions", "a.wav", []byte("RIFF"), nil))
	assert.Equal(t, response.CodeQuotaExceeded, resp.Code)
}

func TestTranscriptionHandler_Upload_EngineFailure(t *testing.T) {
	env := newHandlerEnv(t)
	env.transcriber.err = &engine.Error{Category: engine.CategorySSL, UserMessage: "SSL 证书校验失败"}
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performUpload(t, router, "/transcriptions", "a.wav", []byte("RIFF"), nil))
	assert.Equal(t, response.CodeProcessingError, resp.Code)
	assert.Equal(t, "SSL 证书校验失败", resp.Message)
}

func TestTranscriptionHandler_Async(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performUpload(t, router, "/transcriptions", "a.wav", []byte("RIFF"), map[string]string{"async": "true"}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	taskID, ok := data["task_id"].(string)
	require.True(t, ok)
	assert.Equal(t, model.JobPending, data["status"])
	require.Len(t, env.queue.pushed, 1)
	assert.Equal(t, taskID, env.queue.pushed[0].TaskID)

	resp = parseResponse(t, performRequest(router, "GET", "/transcriptions/tasks/"+taskID, nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, model.JobPending, dataMap(t, resp)["status"])

	// 其他用户看不到该任务
	other := testutil.TestUser(t, env.db)
	otherRouter := setupTranscriptionRouter(t, env, other.ID)
	resp = parseResponse(t, performRequest(otherRouter, "GET", "/transcriptions/tasks/"+taskID, nil))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestTranscriptionHandler_FromRef_Invalid(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupTranscriptionRouter(t, env, user.ID)

	resp := parseResponse(t, performRequest(router, "POST", "/transcriptions/from-ref", map[string]interface{}{
		"audio_ref": "local://audio-files/999/other.wav",
	}))
	assert.Equal(t, response.CodeParamError, resp.Code)
}
