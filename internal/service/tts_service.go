package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/storage"
)

const MaxTTSCharacters = 12000

// 每千字符价格（美元）
var ttsModelPrices = map[string]float64{
	"tts-1":    0.015,
	"tts-1-hd": 0.030,
}

// TTSVoices 支持的音色
var TTSVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

var ttsVoices = func() map[string]bool {
	m := make(map[string]bool, len(TTSVoices))
	for _, v := range TTSVoices {
		m[v] = true
	}
	return m
}()

// TTSModels 模型及每千字符价格
func TTSModels() map[string]float64 {
	out := make(map[string]float64, len(ttsModelPrices))
	for k, v := range ttsModelPrices {
		out[k] = v
	}
	return out
}

// EstimateTTSCost 按字符数估算费用，保留 4 位小数
func EstimateTTSCost(chars int, modelName string) float64 {
	cost := float64(chars) / 1000 * ttsModelPrices[modelName]
	return math.Round(cost*10000) / 10000
}

type TTSService struct {
	quota   *QuotaService
	apiKeys *APIKeyService
	store   storage.Store
	speech  engine.SpeechSynthesizer
}

func NewTTSService(quota *QuotaService, apiKeys *APIKeyService, store storage.Store, speech engine.SpeechSynthesizer) *TTSService {
	return &TTSService{
		quota:   quota,
		apiKeys: apiKeys,
		store:   store,
		speech:  speech,
	}
}

func (s *TTSService) Synthesize(ctx context.Context, rc RequestContext, req *dto.TTSRequest) (*dto.TTSResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	chars := utf8.RuneCountInString(text)
	if chars > MaxTTSCharacters {
		return nil, ErrTextTooLong
	}
	modelName := req.Model
	if modelName == "" {
		modelName = "tts-1"
	}
	if _, ok := ttsModelPrices[modelName]; !ok {
		return nil, ErrInvalidTTSModel
	}
	voice := req.Voice
	if voice == "" {
		voice = "alloy"
	}
	if !ttsVoices[voice] {
		return nil, ErrInvalidVoice
	}

	if err := checkAllowed(ErrTTSQuotaExceeded)(s.quota.TTSCharactersAllowed(rc.UserID, chars)); err != nil {
		return nil, err
	}
	apiKey, err := s.apiKeys.Resolve(rc.UserID, ServiceOpenAI)
	if err != nil {
		return nil, err
	}

	audio, err := s.speech.Synthesize(ctx, apiKey, engine.SpeechRequest{Text: text, Model: modelName, Voice: voice})
	if err != nil {
		return nil, processingError(err)
	}

	key := storage.ObjectKey(rc.UserID, fmt.Sprintf("tts_%s_%s.mp3", voice, shortID()))
	ref, err := s.store.Put(ctx, storage.BucketExports, key, audio, "audio/mpeg")
	if err != nil {
		return nil, persistenceError(err)
	}

	s.quota.recordActivityBestEffort(rc.UserID, model.ActivityTTSGeneration, fmt.Sprintf("%s/%s", modelName, voice), chars)

	resp := &dto.TTSResponse{
		ObjectRef:     ref,
		Characters:    chars,
		EstimatedCost: EstimateTTSCost(chars, modelName),
	}
	if u, err := s.store.PresignedURL(ctx, ref, storage.DefaultPresignExpiry); err == nil {
		resp.DownloadURL = u
	}
	return resp, nil
}
