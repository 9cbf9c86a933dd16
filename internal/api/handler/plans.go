package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/plan"
)

// ListPlans 套餐定义（公开）
// GET /api/v1/plans
func ListPlans(c *gin.Context) {
	response.Success(c, plan.All())
}
