package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/plan"
	"github.com/transcriptflow/server/internal/service"
	"github.com/transcriptflow/server/internal/testutil"
)

type fixedLimit struct {
	limit int64
	err   error
}

func (l fixedLimit) UploadLimit(userID int64) (int64, error) {
	return l.limit, l.err
}

func setupLimitRouter(limiter uploadLimiter) *gin.Engine {
	router := gin.New()
	router.POST("/upload", func(c *gin.Context) {
		if !limitUpload(c, limiter, 1) {
			return
		}
		file, header, ok := formFile(c, "请上传文件")
		if !ok {
			return
		}
		defer file.Close()
		response.Success(c, gin.H{"size": header.Size})
	})
	return router
}

func TestLimitUpload_WithinLimit(t *testing.T) {
	router := setupLimitRouter(fixedLimit{limit: 0})

	resp := parseResponse(t, performUpload(t, router, "/upload", "a.wav", bytes.Repeat([]byte("a"), 1024), nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.EqualValues(t, 1024, dataMap(t, resp)["size"])
}

func TestLimitUpload_DeclaredLengthTooLarge(t *testing.T) {
	router := setupLimitRouter(fixedLimit{limit: 0})

	req := uploadRequest(t, "/upload", "a.wav", []byte("RIFF"), nil)
	req.ContentLength = 2 * multipartOverhead
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Equal(t, service.ErrFileTooLarge.Message, resp.Message)
}

func TestLimitUpload_StreamedBodyTooLarge(t *testing.T) {
	router := setupLimitRouter(fixedLimit{limit: 0})

	// 未声明长度的请求体读到上限即被截断
	req := uploadRequest(t, "/upload", "a.wav", bytes.Repeat([]byte("a"), 2*multipartOverhead), nil)
	req.Body = io.NopCloser(req.Body)
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Equal(t, service.ErrFileTooLarge.Message, resp.Message)
}

func TestLimitUpload_MissingFile(t *testing.T) {
	router := setupLimitRouter(fixedLimit{limit: 0})

	resp := parseResponse(t, performUpload(t, router, "/upload", "", nil, map[string]string{"model": "base"}))
	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Equal(t, "请上传文件", resp.Message)
}

func TestLimitUpload_LimiterFailure(t *testing.T) {
	router := setupLimitRouter(fixedLimit{err: errors.New("db down")})

	resp := parseResponse(t, performUpload(t, router, "/upload", "a.wav", []byte("RIFF"), nil))
	assert.Equal(t, response.CodeServerError, resp.Code)
}

func TestTranscriptionHandler_Upload_RejectsOversizedBody(t *testing.T) {
	env := newHandlerEnv(t)
	cases := []struct {
		name     string
		planName string
	}{
		{"free", ""},
		{"premium", plan.Premium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := testutil.TestUser(t, env.db)
			if tc.planName != "" {
				testutil.TestSubscription(t, env.db, user.ID, tc.planName)
			}
			router := setupTranscriptionRouter(t, env, user.ID)

			req := uploadRequest(t, "/transcriptions", "big.wav", []byte("RIFF-audio"), nil)
			req.ContentLength = 600 * 1024 * 1024
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			resp := parseResponse(t, w)
			assert.Equal(t, response.CodeParamError, resp.Code)
			assert.Equal(t, service.ErrFileTooLarge.Message, resp.Message)
			assert.Zero(t, env.transcriber.calls)

			var n int64
			require.NoError(t, env.db.Model(&model.Transcription{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestMediaHandler_ExtractVideo_RejectsOversizedBody(t *testing.T) {
	env := newHandlerEnv(t)
	user := testutil.TestUser(t, env.db)
	router := setupEngineRouter(t, env, user.ID)

	req := uploadRequest(t, "/media/video", "clip.mp4", []byte("ftyp"), nil)
	req.ContentLength = 600 * 1024 * 1024
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Equal(t, service.ErrFileTooLarge.Message, resp.Message)
}
