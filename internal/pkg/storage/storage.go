package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// 存储桶
const (
	BucketAudio          = "audio-files"
	BucketTranscriptions = "transcriptions"
	BucketExports        = "exports"
)

// DefaultPresignExpiry 预签名链接默认有效期
const DefaultPresignExpiry = time.Hour

var (
	ErrInvalidRef         = errors.New("invalid storage ref")
	ErrUnknownBackend     = errors.New("storage backend not available")
	ErrPresignUnsupported = errors.New("presigned url not supported by backend")
	ErrInvalidKey         = errors.New("invalid object key")
)

// Backend 单一存储后端，按 bucket/key 寻址
type Backend interface {
	Scheme() string
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Store 业务层使用的存储接口，按 ref 寻址
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Ref 对象引用 scheme://bucket/key
type Ref struct {
	Scheme string
	Bucket string
	Key    string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s://%s/%s", r.Scheme, r.Bucket, r.Key)
}

// ParseRef 解析对象引用
func ParseRef(s string) (Ref, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || scheme == "" {
		return Ref{}, ErrInvalidRef
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Ref{}, ErrInvalidRef
	}
	return Ref{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// ObjectKey 用户对象路径 {userID}/{filename}
func ObjectKey(userID int64, filename string) string {
	return fmt.Sprintf("%d/%s", userID, filepath.Base(filename))
}

// ContentTypeFor 根据扩展名获取 Content-Type
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}
