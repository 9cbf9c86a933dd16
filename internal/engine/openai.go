package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/model"
)

// ErrMissingAPIKey 用户和服务器都没有配置 API 密钥
var ErrMissingAPIKey = errors.New("openai api key is not configured")

// OpenAI 基于 go-openai 的转写、对话和语音合成
type OpenAI struct {
	baseURL     string
	defaultKey  string
	chatModel   string
	temperature float32
}

func NewOpenAI(cfg *config.OpenAIConfig) *OpenAI {
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT3Dot5Turbo
	}
	return &OpenAI{
		baseURL:     cfg.BaseURL,
		defaultKey:  cfg.APIKey,
		chatModel:   chatModel,
		temperature: cfg.Temperature,
	}
}

func (o *OpenAI) client(apiKey string) (*openai.Client, error) {
	if apiKey == "" {
		apiKey = o.defaultKey
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		c.BaseURL = o.baseURL
	}
	return openai.NewClientWithConfig(c), nil
}

// Transcribe 走 OpenAI whisper-1，模型档位只用于记录，不影响远端模型
func (o *OpenAI) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	client, err := o.client(req.APIKey)
	if err != nil {
		return nil, err
	}

	audioReq := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: req.AudioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var resp openai.AudioResponse
	if req.Translate {
		resp, err = client.CreateTranslation(ctx, audioReq)
	} else {
		resp, err = client.CreateTranscription(ctx, audioReq)
	}
	if err != nil {
		return nil, classifyError("whisper", "", err)
	}

	result := &TranscribeResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]model.Segment, 0, len(resp.Segments)),
	}
	for _, s := range resp.Segments {
		result.Segments = append(result.Segments, model.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return result, nil
}

func (o *OpenAI) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	client, err := o.client(apiKey)
	if err != nil {
		return "", err
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.temperature,
	})
	if err != nil {
		return "", classifyError("gpt", "", err)
	}
	if len(resp.Choices) == 0 {
		return "", classifyError("gpt", "", fmt.Errorf("empty completion"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *OpenAI) Synthesize(ctx context.Context, apiKey string, req SpeechRequest) ([]byte, error) {
	client, err := o.client(apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, classifyError("tts", "", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, classifyError("tts", "", fmt.Errorf("read speech body: %w", err))
	}
	return audio, nil
}
