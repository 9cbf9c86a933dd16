package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/transcriptflow/server/config"
)

const SchemeOSS = "oss"

// OSSStore 阿里云 OSS 存储，逻辑 bucket 映射为 <prefix><bucket>
type OSSStore struct {
	client  *oss.Client
	prefix  string
	mu      sync.Mutex
	buckets map[string]*oss.Bucket
}

func NewOSSStore(cfg *config.OSSConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	return &OSSStore{
		client:  client,
		prefix:  cfg.BucketPrefix,
		buckets: make(map[string]*oss.Bucket),
	}, nil
}

func (s *OSSStore) Scheme() string { return SchemeOSS }

func (s *OSSStore) bucket(name string) (*oss.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	b, err := s.client.Bucket(s.prefix + name)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	s.buckets[name] = b
	return b, nil
}

func (s *OSSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType)); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *OSSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	body, err := b.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer body.Close()
	return io.ReadAll(body)
}

// PresignedURL 生成带签名的临时访问URL
func (s *OSSStore) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	b, err := s.bucket(bucket)
	if err != nil {
		return "", err
	}
	signedURL, err := b.SignURL(key, oss.HTTPGet, int64(expiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signedURL, nil
}

func (s *OSSStore) Delete(ctx context.Context, bucket, key string) error {
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.DeleteObject(key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
