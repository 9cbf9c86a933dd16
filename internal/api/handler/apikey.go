package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type APIKeyHandler struct {
	apiKeyService *service.APIKeyService
}

func NewAPIKeyHandler(apiKeyService *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
	}
}

// List 已保存的密钥（仅掩码）
// GET /api/v1/api-keys
func (h *APIKeyHandler) List(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	keys, err := h.apiKeyService.List(rc)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, keys)
}

// Save 保存或替换密钥
// PUT /api/v1/api-keys
func (h *APIKeyHandler) Save(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SaveAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.apiKeyService.Save(rc, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "密钥已保存", info)
}

// Delete 删除密钥
// DELETE /api/v1/api-keys/:service
func (h *APIKeyHandler) Delete(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	deleted, err := h.apiKeyService.Delete(rc, c.Param("service"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		response.NotFoundError(c, "密钥不存在")
		return
	}
	response.SuccessWithMessage(c, "密钥已删除", nil)
}
