package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// 引擎错误分类
const (
	CategorySSL         = "ssl"
	CategoryMissingTool = "missing_tool"
	CategoryNetwork     = "network"
	CategoryMedia       = "unsupported_media"
	CategoryAPIKey      = "api_key"
	CategoryTimeout     = "timeout"
	CategoryUnknown     = "unknown"
)

// Error 引擎错误，包含用户友好消息和原始错误
type Error struct {
	Category    string
	UserMessage string // 中文，给用户看
	RawError    error  // 原始错误，写日志
}

func (e *Error) Error() string {
	return e.UserMessage
}

func (e *Error) Unwrap() error {
	return e.RawError
}

// Transient 判断是否为暂时性错误（值得重试）
func (e *Error) Transient() bool {
	return e.Category == CategoryNetwork || e.Category == CategoryTimeout
}

// classifyError 根据外部命令输出或 API 错误分类，返回中文用户提示
func classifyError(tool, output string, err error) *Error {
	raw := fmt.Errorf("%s: %w, output: %s", tool, err, strings.TrimSpace(output))

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401:
			return &Error{Category: CategoryAPIKey, UserMessage: "API 密钥无效或已被拒绝，请检查密钥设置", RawError: raw}
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return &Error{Category: CategoryNetwork, UserMessage: "模型服务暂时不可用，请稍后重试", RawError: raw}
		case apiErr.HTTPStatusCode == 400:
			return &Error{Category: CategoryMedia, UserMessage: "请求内容不被模型服务支持，请检查输入", RawError: raw}
		}
	}

	if errors.Is(err, exec.ErrNotFound) {
		return &Error{Category: CategoryMissingTool, UserMessage: fmt.Sprintf("服务器未安装 %s，请联系管理员", tool), RawError: raw}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: CategoryTimeout, UserMessage: "处理超时，请尝试更短的音频", RawError: raw}
	}

	lower := strings.ToLower(output + " " + err.Error())
	switch {
	case strings.Contains(lower, "ssl") ||
		strings.Contains(lower, "certificate") ||
		strings.Contains(lower, "x509"):
		return &Error{
			Category:    CategorySSL,
			UserMessage: "下载或加载 Whisper 模型时发生 SSL 错误，请检查证书配置或手动下载模型",
			RawError:    raw,
		}
	case strings.Contains(lower, "executable file not found") ||
		strings.Contains(lower, "command not found"):
		return &Error{Category: CategoryMissingTool, UserMessage: fmt.Sprintf("服务器未安装 %s，请联系管理员", tool), RawError: raw}
	case strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "401"):
		return &Error{Category: CategoryAPIKey, UserMessage: "API 密钥无效或已被拒绝，请检查密钥设置", RawError: raw}
	case strings.Contains(lower, "could not resolve host") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "unable to download"):
		return &Error{Category: CategoryNetwork, UserMessage: "网络连接失败，请稍后重试", RawError: raw}
	case strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "timeout"):
		return &Error{Category: CategoryTimeout, UserMessage: "处理超时，请尝试更短的音频", RawError: raw}
	case strings.Contains(lower, "invalid data found") ||
		strings.Contains(lower, "unsupported") ||
		strings.Contains(lower, "does not contain any stream") ||
		strings.Contains(lower, "no such file"):
		return &Error{Category: CategoryMedia, UserMessage: "文件格式不受支持或文件已损坏", RawError: raw}
	case strings.Contains(lower, "video unavailable") ||
		strings.Contains(lower, "private video"):
		return &Error{Category: CategoryMedia, UserMessage: "视频不可用，请检查链接是否公开", RawError: raw}
	default:
		return &Error{Category: CategoryUnknown, UserMessage: fmt.Sprintf("%s 处理失败，请稍后重试", tool), RawError: raw}
	}
}
