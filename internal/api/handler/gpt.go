package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type GPTHandler struct {
	gptService *service.GPTService
}

func NewGPTHandler(gptService *service.GPTService) *GPTHandler {
	return &GPTHandler{
		gptService: gptService,
	}
}

// Summarize 生成摘要
// POST /api/v1/gpt/summarize
func (h *GPTHandler) Summarize(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.gptService.Summarize(c.Request.Context(), rc, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Keywords 提取关键词
// POST /api/v1/gpt/keywords
func (h *GPTHandler) Keywords(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.KeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.gptService.Keywords(c.Request.Context(), rc, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Answer 基于文本回答问题
// POST /api/v1/gpt/answer
func (h *GPTHandler) Answer(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.gptService.Answer(c.Request.Context(), rc, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}
