package storage

import (
	"context"
	"log"

	"github.com/transcriptflow/server/config"
)

// NewFromConfig 按配置构建存储；主存储初始化失败时退化为纯本地
func NewFromConfig(ctx context.Context, cfg *config.StorageConfig) *FallbackStore {
	local := NewLocalStore(cfg.LocalRoot)

	var primary Backend
	switch cfg.Backend {
	case SchemeMinio:
		if cfg.Minio.Endpoint == "" {
			break
		}
		store, err := NewMinioStore(&cfg.Minio)
		if err != nil {
			log.Printf("Warning: failed to init minio: %v", err)
			break
		}
		if err := store.EnsureBuckets(ctx, BucketAudio, BucketTranscriptions, BucketExports); err != nil {
			log.Printf("Warning: minio unavailable, using local storage: %v", err)
			break
		}
		primary = store
	case SchemeOSS:
		if cfg.OSS.Endpoint == "" || cfg.OSS.AccessKeyID == "" {
			break
		}
		store, err := NewOSSStore(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: failed to init OSS: %v", err)
			break
		}
		primary = store
	}

	if primary != nil {
		log.Printf("Storage backend: %s (local fallback at %s)", primary.Scheme(), cfg.LocalRoot)
	} else {
		log.Printf("Storage backend: local (%s)", cfg.LocalRoot)
	}
	return NewFallbackStore(primary, local)
}
