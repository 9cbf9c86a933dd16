package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type TranscriptionHandler struct {
	runner service.TranscriptionRunner
}

func NewTranscriptionHandler(runner service.TranscriptionRunner) *TranscriptionHandler {
	return &TranscriptionHandler{
		runner: runner,
	}
}

// Upload 上传音频并转写，async=true 时返回任务 ID
// POST /api/v1/transcriptions  (multipart: file, model, translate, async)
func (h *TranscriptionHandler) Upload(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	if !limitUpload(c, h.runner, rc.UserID) {
		return
	}
	file, header, ok := formFile(c, "请上传音频文件")
	if !ok {
		return
	}
	defer file.Close()

	translate, _ := strconv.ParseBool(c.PostForm("translate"))
	async, _ := strconv.ParseBool(c.PostForm("async"))
	in := &service.TranscriptionInput{
		File: &service.UploadedFile{
			Filename: header.Filename,
			Size:     header.Size,
			Reader:   file,
		},
		Model:     c.PostForm("model"),
		Translate: translate,
	}
	h.run(c, rc, in, async)
}

// FromRef 转写已存储的音频（如 YouTube 提取结果）
// POST /api/v1/transcriptions/from-ref
func (h *TranscriptionHandler) FromRef(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TranscribeFromRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	in := &service.TranscriptionInput{
		AudioRef:  req.AudioRef,
		Model:     req.Model,
		Translate: req.Translate,
	}
	h.run(c, rc, in, req.Async)
}

func (h *TranscriptionHandler) run(c *gin.Context, rc service.RequestContext, in *service.TranscriptionInput, async bool) {
	ctx := c.Request.Context()
	if async {
		handle, err := h.runner.SubmitAsync(ctx, rc, in)
		if err != nil {
			respondError(c, err)
			return
		}
		response.SuccessWithMessage(c, "任务已提交", handle)
		return
	}

	result, err := h.runner.RunSync(ctx, rc, in)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "转写完成", result)
}

// GetTask 查询异步任务状态
// GET /api/v1/transcriptions/tasks/:task_id
func (h *TranscriptionHandler) GetTask(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.runner.Poll(c.Request.Context(), rc, c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, status)
}
