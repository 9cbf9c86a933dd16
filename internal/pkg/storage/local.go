package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const SchemeLocal = "local"

// LocalStore 本地磁盘存储：<root>/<bucket>/<userID>/<filename>
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Scheme() string { return SchemeLocal }

// Path 对象对应的本地路径
func (s *LocalStore) Path(bucket, key string) (string, error) {
	if !validKey(key) || !validKey(bucket) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(key)), nil
}

func (s *LocalStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	path, err := s.Path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	path, err := s.Path(bucket, key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *LocalStore) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (s *LocalStore) Delete(ctx context.Context, bucket, key string) error {
	path, err := s.Path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
