package handler

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

// multipartOverhead 表单边界和其他字段的余量
const multipartOverhead = 1 << 20

// uploadLimiter 按用户套餐给出单文件字节上限
type uploadLimiter interface {
	UploadLimit(userID int64) (int64, error)
}

// limitUpload 在解析 multipart 之前截断请求体，超限时直接写响应
func limitUpload(c *gin.Context, limiter uploadLimiter, userID int64) bool {
	limit, err := limiter.UploadLimit(userID)
	if err != nil {
		respondError(c, err)
		return false
	}
	limit += multipartOverhead

	if c.Request.ContentLength > limit {
		respondError(c, service.ErrFileTooLarge)
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}

// formFile 读取上传文件，请求体被截断时按文件过大处理
func formFile(c *gin.Context, missing string) (multipart.File, *multipart.FileHeader, bool) {
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		return file, header, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Printf("Upload body exceeded %d bytes on %s", tooLarge.Limit, c.FullPath())
		respondError(c, service.ErrFileTooLarge)
		return nil, nil, false
	}
	response.ParamError(c, missing)
	return nil, nil, false
}
