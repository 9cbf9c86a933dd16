package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type HistoryHandler struct {
	historyService *service.HistoryService
}

func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// List 转写历史
// GET /api/v1/history?page=1&page_size=20
func (h *HistoryHandler) List(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	items, total, err := h.historyService.List(rc, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 转写详情（含分段）
// GET /api/v1/history/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.historyService.Get(rc, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Chapters 按时间窗口生成章节
// GET /api/v1/history/:id/chapters
func (h *HistoryHandler) Chapters(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.historyService.Chapters(rc, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Export 导出 txt
// POST /api/v1/history/:id/export
func (h *HistoryHandler) Export(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.historyService.Export(c.Request.Context(), rc, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "导出完成", resp)
}

// Download 转写文本的下载链接
// GET /api/v1/history/:id/download
func (h *HistoryHandler) Download(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.historyService.DownloadURL(c.Request.Context(), rc, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Delete 删除转写记录
// DELETE /api/v1/history/:id
func (h *HistoryHandler) Delete(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.historyService.Delete(c.Request.Context(), rc, id); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}
