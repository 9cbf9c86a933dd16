package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Get 活动统计
// GET /api/v1/dashboard?days=30
func (h *DashboardHandler) Get(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.Query("days"))
	resp, err := h.dashboardService.Get(rc, days)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}
