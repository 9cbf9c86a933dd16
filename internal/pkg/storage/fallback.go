package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// FallbackStore 优先写主存储，失败或未配置时落到本地磁盘
type FallbackStore struct {
	primary Backend
	local   *LocalStore
}

// NewFallbackStore primary 可以为 nil（纯本地模式）
func NewFallbackStore(primary Backend, local *LocalStore) *FallbackStore {
	return &FallbackStore{primary: primary, local: local}
}

// HasPrimary 是否配置了主存储
func (s *FallbackStore) HasPrimary() bool {
	return s.primary != nil
}

func (s *FallbackStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if s.primary != nil {
		err := s.primary.Put(ctx, bucket, key, data, contentType)
		if err == nil {
			return Ref{Scheme: s.primary.Scheme(), Bucket: bucket, Key: key}.String(), nil
		}
		log.Printf("Storage: %s put %s/%s failed, falling back to local: %v", s.primary.Scheme(), bucket, key, err)
	}

	if err := s.local.Put(ctx, bucket, key, data, contentType); err != nil {
		return "", err
	}
	return Ref{Scheme: SchemeLocal, Bucket: bucket, Key: key}.String(), nil
}

func (s *FallbackStore) Get(ctx context.Context, ref string) ([]byte, error) {
	r, backend, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return backend.Get(ctx, r.Bucket, r.Key)
}

func (s *FallbackStore) PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	r, backend, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	return backend.PresignedURL(ctx, r.Bucket, r.Key, expiry)
}

func (s *FallbackStore) Delete(ctx context.Context, ref string) error {
	r, backend, err := s.resolve(ref)
	if err != nil {
		return err
	}
	return backend.Delete(ctx, r.Bucket, r.Key)
}

// Promote 将本地对象迁移到主存储，返回新 ref
func (s *FallbackStore) Promote(ctx context.Context, ref string) (string, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	if r.Scheme != SchemeLocal || s.primary == nil {
		return ref, nil
	}

	data, err := s.local.Get(ctx, r.Bucket, r.Key)
	if err != nil {
		return "", fmt.Errorf("failed to read local object: %w", err)
	}
	if err := s.primary.Put(ctx, r.Bucket, r.Key, data, ContentTypeFor(r.Key)); err != nil {
		return "", err
	}
	if err := s.local.Delete(ctx, r.Bucket, r.Key); err != nil {
		log.Printf("Storage: failed to remove promoted local object %s: %v", ref, err)
	}
	return Ref{Scheme: s.primary.Scheme(), Bucket: r.Bucket, Key: r.Key}.String(), nil
}

func (s *FallbackStore) resolve(ref string) (Ref, Backend, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return Ref{}, nil, err
	}
	switch {
	case r.Scheme == SchemeLocal:
		return r, s.local, nil
	case s.primary != nil && r.Scheme == s.primary.Scheme():
		return r, s.primary, nil
	default:
		return Ref{}, nil, ErrUnknownBackend
	}
}
