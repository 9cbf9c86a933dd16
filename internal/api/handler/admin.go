package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListUsers 用户列表
// GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	users, total, err := h.adminService.ListUsers(rc, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPage(c, total, page, pageSize, users)
}

// SetPlan 设置用户套餐
// PUT /api/v1/admin/users/:id/plan
func (h *AdminHandler) SetPlan(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.SetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sub, err := h.adminService.SetPlan(rc, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "套餐已更新", sub)
}

// ListSubscriptions 用户订阅记录
// GET /api/v1/admin/users/:id/subscriptions
func (h *AdminHandler) ListSubscriptions(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	subs, err := h.adminService.ListSubscriptions(rc, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, subs)
}
