package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type UserHandler struct {
	userService  *service.UserService
	quotaService *service.QuotaService
}

func NewUserHandler(userService *service.UserService, quotaService *service.QuotaService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		quotaService: quotaService,
	}
}

// GetProfile 获取当前用户信息
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(rc.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateProfile 更新用户信息
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(rc.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", profile)
}

// GetUsage 当前周期用量和套餐上限
// GET /api/v1/user/usage
func (h *UserHandler) GetUsage(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	report, err := h.quotaService.GetUsageReport(rc.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, report)
}
