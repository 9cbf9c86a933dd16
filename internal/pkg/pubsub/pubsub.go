package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelTranscriptionProgress = "transcription_progress"
)

// ProgressMessage 进度消息
type ProgressMessage struct {
	Type            string `json:"type"`
	UserID          int64  `json:"user_id"`
	JobID           int64  `json:"job_id"`
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	Step            string `json:"step"`
	Progress        int    `json:"progress"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
	TranscriptionID int64  `json:"transcription_id,omitempty"`
}

// 进度阶段常量
const (
	StepLoading      = "loading"
	StepTranscribing = "transcribing"
	StepSaving       = "saving"
	StepDone         = "done"
)

// 阶段对应的进度百分比
var StepProgress = map[string]int{
	StepLoading:      20,
	StepTranscribing: 50,
	StepSaving:       85,
	StepDone:         100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepLoading:      "正在读取音频",
	StepTranscribing: "正在转写",
	StepSaving:       "正在保存结果",
	StepDone:         "转写完成",
}

// fill 按阶段补齐进度和提示
func fill(msg *ProgressMessage) {
	msg.Type = "job_progress"
	if msg.Progress == 0 && msg.Step != "" {
		msg.Progress = StepProgress[msg.Step]
	}
	if msg.Message == "" && msg.Step != "" {
		msg.Message = StepMessages[msg.Step]
	}
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress 发布进度消息
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	fill(msg)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelTranscriptionProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	sub := s.client.Subscribe(ctx, ChannelTranscriptionProgress)
	defer sub.Close()

	// 等待订阅确认，保证返回前已生效
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
