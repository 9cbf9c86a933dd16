package service

import (
	"errors"

	"github.com/transcriptflow/server/internal/engine"
)

// Kind 错误分类，决定返回给客户端的错误码
type Kind string

const (
	KindValidation  Kind = "validation"
	KindQuota       Kind = "quota"
	KindProcessing  Kind = "processing"
	KindPersistence Kind = "persistence"
)

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string // 中文，给用户看
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf 判断任意错误的分类，未识别的错误视为持久化错误
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return KindProcessing
	}
	return KindPersistence
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func quotaError(msg string) *Error {
	return &Error{Kind: KindQuota, Message: msg}
}

// processingError 包装引擎错误，用户消息取引擎分类结果
func processingError(err error) *Error {
	var ee *engine.Error
	if errors.As(err, &ee) {
		return &Error{Kind: KindProcessing, Message: ee.UserMessage, Err: err}
	}
	if errors.Is(err, engine.ErrMissingAPIKey) {
		return &Error{Kind: KindValidation, Message: ErrMissingAPIKey.Message, Err: err}
	}
	return &Error{Kind: KindProcessing, Message: "处理失败，请稍后重试", Err: err}
}

func persistenceError(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "保存结果失败，请稍后重试", Err: err}
}

// 校验错误
var (
	ErrEmptyInput             = validationError("输入内容不能为空")
	ErrInvalidYouTubeURL      = validationError("请输入有效的 YouTube 链接")
	ErrUnsupportedVideoFormat = validationError("不支持的视频格式，仅支持 mp4、mov、avi、mkv、wmv")
	ErrUnsupportedAudioFormat = validationError("不支持的音频格式，仅支持 wav、mp3、m4a、ogg、flac、webm")
	ErrFileTooLarge           = validationError("文件大小超过当前套餐上限")
	ErrModelNotAllowed        = validationError("当前套餐无法使用该模型")
	ErrInvalidStyle           = validationError("摘要风格仅支持 bullet、concise、detailed")
	ErrEmptyQuestion          = validationError("问题不能为空")
	ErrTextTooLong            = validationError("文本长度超过 12000 字符上限")
	ErrInvalidTTSModel        = validationError("语音模型仅支持 tts-1、tts-1-hd")
	ErrInvalidVoice           = validationError("不支持的音色")
	ErrMissingAPIKey          = validationError("未配置 OpenAI API 密钥，请先在设置中添加")
	ErrInvalidAPIKey          = validationError("API 密钥格式不正确")
	ErrUnsupportedService     = validationError("不支持的服务类型")
	ErrInvalidAudioRef        = validationError("音频引用无效")
	ErrInvalidPlan            = validationError("未知的套餐")
)

// 额度错误
var (
	ErrQuotaExceeded    = quotaError("本月转写次数已用完，请升级套餐")
	ErrGPTQuotaExceeded = quotaError("本月 GPT 请求次数已用完，请升级套餐")
	ErrTTSQuotaExceeded = quotaError("本月语音合成字符额度不足")
	ErrConcurrencyLimit = quotaError("进行中的任务数已达套餐上限，请稍后再试")
)

// 资源错误，由 handler 映射为 NotFound / Permission
var (
	ErrTaskNotFound          = errors.New("任务不存在")
	ErrTranscriptionNotFound = errors.New("转写记录不存在")
	ErrPermissionDenied      = errors.New("权限不足")
)
