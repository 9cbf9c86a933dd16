package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

// ExtractYouTube 下载 YouTube 音频
// POST /api/v1/media/youtube
func (h *MediaHandler) ExtractYouTube(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ExtractYouTubeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.mediaService.ExtractYouTube(c.Request.Context(), rc, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "音频提取完成", resp)
}

// ExtractVideo 从上传的视频中提取音频
// POST /api/v1/media/video  (multipart: file)
func (h *MediaHandler) ExtractVideo(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}

	if !limitUpload(c, h.mediaService, rc.UserID) {
		return
	}
	file, header, ok := formFile(c, "请上传视频文件")
	if !ok {
		return
	}
	defer file.Close()

	resp, err := h.mediaService.ExtractVideo(c.Request.Context(), rc, &service.UploadedFile{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "音频提取完成", resp)
}
