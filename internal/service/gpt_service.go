package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/textproc"
)

type GPTService struct {
	quota             *QuotaService
	apiKeys           *APIKeyService
	transcriptionRepo *repository.TranscriptionRepository
	chat              engine.ChatCompleter
}

func NewGPTService(
	quota *QuotaService,
	apiKeys *APIKeyService,
	transcriptionRepo *repository.TranscriptionRepository,
	chat engine.ChatCompleter,
) *GPTService {
	return &GPTService{
		quota:             quota,
		apiKeys:           apiKeys,
		transcriptionRepo: transcriptionRepo,
		chat:              chat,
	}
}

// resolveText 直接给出的文本优先，否则读取用户自己的转写记录
func (s *GPTService) resolveText(rc RequestContext, text string, transcriptionID int64) (string, error) {
	if t := strings.TrimSpace(text); t != "" {
		return t, nil
	}
	if transcriptionID == 0 {
		return "", ErrEmptyInput
	}
	tr, err := s.transcriptionRepo.GetByIDForUser(transcriptionID, rc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTranscriptionNotFound
		}
		return "", err
	}
	if strings.TrimSpace(tr.Text) == "" {
		return "", ErrEmptyInput
	}
	return tr.Text, nil
}

// begin 额度检查并取得 API 密钥
func (s *GPTService) begin(rc RequestContext) (string, error) {
	if err := checkAllowed(ErrGPTQuotaExceeded)(s.quota.HasGPTQuota(rc.UserID)); err != nil {
		return "", err
	}
	return s.apiKeys.Resolve(rc.UserID, ServiceOpenAI)
}

// Summarize 长文本分块摘要后再合并
func (s *GPTService) Summarize(ctx context.Context, rc RequestContext, req *dto.SummarizeRequest) (*dto.GPTResponse, error) {
	text, err := s.resolveText(rc, req.Text, req.TranscriptionID)
	if err != nil {
		return nil, err
	}
	style := req.Style
	if style == "" {
		style = textproc.StyleBullet
	}
	if !textproc.ValidStyle(style) {
		return nil, ErrInvalidStyle
	}

	apiKey, err := s.begin(rc)
	if err != nil {
		return nil, err
	}

	chunks := textproc.ChunkText(text, textproc.SummaryChunkChars)
	partials := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		part, err := s.chat.Complete(ctx, apiKey, textproc.SummaryPrompt(chunk, style))
		if err != nil {
			return nil, processingError(err)
		}
		partials = append(partials, part)
	}

	summary := partials[0]
	if len(partials) > 1 {
		summary, err = s.chat.Complete(ctx, apiKey, textproc.CombinePrompt(partials, style))
		if err != nil {
			return nil, processingError(err)
		}
	}

	s.quota.recordActivityBestEffort(rc.UserID, model.ActivityGPTRequest, "summarize:"+style, 1)
	return &dto.GPTResponse{Result: summary}, nil
}

func (s *GPTService) Keywords(ctx context.Context, rc RequestContext, req *dto.KeywordsRequest) (*dto.GPTResponse, error) {
	text, err := s.resolveText(rc, req.Text, req.TranscriptionID)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.begin(rc)
	if err != nil {
		return nil, err
	}

	out, err := s.chat.Complete(ctx, apiKey, textproc.KeywordsPrompt(text))
	if err != nil {
		return nil, processingError(err)
	}

	s.quota.recordActivityBestEffort(rc.UserID, model.ActivityGPTRequest, "keywords", 1)
	return &dto.GPTResponse{Result: out, Keywords: textproc.SplitKeywords(out)}, nil
}

func (s *GPTService) Answer(ctx context.Context, rc RequestContext, req *dto.AnswerRequest) (*dto.GPTResponse, error) {
	text, err := s.resolveText(rc, req.Text, req.TranscriptionID)
	if err != nil {
		return nil, err
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	apiKey, err := s.begin(rc)
	if err != nil {
		return nil, err
	}

	out, err := s.chat.Complete(ctx, apiKey, textproc.AnswerPrompt(text, question))
	if err != nil {
		return nil, processingError(err)
	}

	s.quota.recordActivityBestEffort(rc.UserID, model.ActivityGPTRequest, "qa", 1)
	return &dto.GPTResponse{Result: out}, nil
}
