package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/api/middleware"
	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

// respondError 业务错误映射为响应码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrTranscriptionNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
		return
	case errors.Is(err, service.ErrPermissionDenied):
		response.PermissionError(c, err.Error())
		return
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrUsernameExists):
		response.DuplicateError(c, err.Error())
		return
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidOAuthState):
		response.AuthError(c, err.Error())
		return
	case errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrInvalidResetToken):
		response.ParamError(c, err.Error())
		return
	case errors.Is(err, service.ErrOAuthNotConfigured),
		errors.Is(err, service.ErrEmailDeliveryFailed):
		response.ServerError(c, err.Error())
		return
	}

	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindValidation:
			response.ParamError(c, se.Message)
		case service.KindQuota:
			response.QuotaError(c, se.Message)
		case service.KindProcessing:
			log.Printf("Processing error on %s: %v", c.FullPath(), se.Unwrap())
			response.ProcessingError(c, se.Message)
		default:
			log.Printf("Persistence error on %s: %v", c.FullPath(), se.Unwrap())
			response.ServerError(c, se.Message)
		}
		return
	}

	var ee *engine.Error
	if errors.As(err, &ee) {
		response.ProcessingError(c, ee.UserMessage)
		return
	}

	log.Printf("Unhandled error on %s: %v", c.FullPath(), err)
	response.ServerError(c, "")
}

// currentUser 读取身份，未认证时直接写响应
func currentUser(c *gin.Context) (service.RequestContext, bool) {
	rc, ok := middleware.RequestContext(c)
	if !ok {
		response.AuthError(c, "")
	}
	return rc, ok
}

// idParam 解析路径中的正整数 ID
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的ID")
		return 0, false
	}
	return id, true
}

// pageParams 读取 page / page_size，默认 1 / 20
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
