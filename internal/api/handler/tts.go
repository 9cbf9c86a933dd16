package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type TTSHandler struct {
	ttsService *service.TTSService
}

func NewTTSHandler(ttsService *service.TTSService) *TTSHandler {
	return &TTSHandler{
		ttsService: ttsService,
	}
}

// Synthesize 文本转语音
// POST /api/v1/tts
func (h *TTSHandler) Synthesize(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.ttsService.Synthesize(c.Request.Context(), rc, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "语音生成完成", resp)
}

// Voices 可选模型、音色和单价
// GET /api/v1/tts/voices
func (h *TTSHandler) Voices(c *gin.Context) {
	response.Success(c, gin.H{
		"models":    service.TTSModels(),
		"voices":    service.TTSVoices,
		"max_chars": service.MaxTTSCharacters,
	})
}
