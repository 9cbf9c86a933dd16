package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func TestSuccess(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		Success(c, gin.H{"key": "value"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestSuccessWithMessage(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		SuccessWithMessage(c, "操作成功", gin.H{"result": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "操作成功", resp.Message)
}

func TestSuccessPage(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		items := []string{"item1", "item2", "item3"}
		SuccessPage(c, 100, 1, 10, items)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(100), data["total"])
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(10), data["page_size"])

	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestError(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		Error(c, CodeServerError, "自定义错误消息")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeServerError, resp.Code)
	assert.Equal(t, "自定义错误消息", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name        string
		fn          func(*gin.Context, string)
		wantCode    int
		message     string
		wantMessage string
	}{
		{"param custom", ParamError, CodeParamError, "用户名不能为空", "用户名不能为空"},
		{"param default", ParamError, CodeParamError, "", "参数错误"},
		{"auth default", AuthError, CodeAuthFailed, "", "认证失败"},
		{"permission default", PermissionError, CodePermissionDenied, "", "权限不足"},
		{"not found custom", NotFoundError, CodeResourceNotFound, "转写记录不存在", "转写记录不存在"},
		{"quota custom", QuotaError, CodeQuotaExceeded, "本月转写次数已用完", "本月转写次数已用完"},
		{"quota default", QuotaError, CodeQuotaExceeded, "", "配额不足"},
		{"duplicate default", DuplicateError, CodeDuplicateAction, "", "重复操作"},
		{"processing custom", ProcessingError, CodeProcessingError, "SSL 证书校验失败", "SSL 证书校验失败"},
		{"processing default", ProcessingError, CodeProcessingError, "", "处理失败"},
		{"rate limit default", TooManyRequests, CodeTooManyRequests, "", "请求过于频繁"},
		{"server custom", ServerError, CodeServerError, "数据库连接失败", "数据库连接失败"},
		{"server default", ServerError, CodeServerError, "", "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", func(c *gin.Context) {
				tt.fn(c, tt.message)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestErrorCodesAreDistinct(t *testing.T) {
	codes := []int{CodeParamError, CodeQuotaExceeded, CodeProcessingError, CodeServerError}
	seen := map[int]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %d", c)
		seen[c] = true
	}
}

func TestError_UnknownCode(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		Error(c, 9999, "") // Unknown code
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, 9999, resp.Code)
	assert.Empty(t, resp.Message) // Unknown code has no default message
}
