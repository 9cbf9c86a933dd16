package worker

import (
	"context"
	"log"
	"time"

	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
)

const (
	reuploadInterval  = 5 * time.Minute
	reuploadBatchSize = 100
)

// Promoter 把本地兜底对象迁回主存储
type Promoter interface {
	HasPrimary() bool
	Promote(ctx context.Context, ref string) (string, error)
}

// Reuploader 后台把 local:// 转写文本迁回主存储
type Reuploader struct {
	transcriptionRepo *repository.TranscriptionRepository
	store             Promoter
}

// NewReuploader 创建重传器
func NewReuploader(transcriptionRepo *repository.TranscriptionRepository, store Promoter) *Reuploader {
	return &Reuploader{
		transcriptionRepo: transcriptionRepo,
		store:             store,
	}
}

// Start 启动后台重传循环
func (r *Reuploader) Start(ctx context.Context) {
	if !r.store.HasPrimary() {
		log.Println("Reuploader disabled: no primary storage configured")
		return
	}

	// 启动后先执行一次
	r.RunOnce(ctx)

	ticker := time.NewTicker(reuploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reuploader stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce 迁移一批本地对象，返回成功数
func (r *Reuploader) RunOnce(ctx context.Context) int {
	if !r.store.HasPrimary() {
		return 0
	}

	rows, err := r.transcriptionRepo.ListByObjectRefPrefix(storage.SchemeLocal+"://", reuploadBatchSize)
	if err != nil {
		log.Printf("Reuploader: failed to query local objects: %v", err)
		return 0
	}
	if len(rows) == 0 {
		return 0
	}

	log.Printf("Reuploader: found %d local objects to re-upload", len(rows))

	moved := 0
	for _, tr := range rows {
		newRef, err := r.store.Promote(ctx, tr.ObjectRef)
		if err != nil {
			log.Printf("Reuploader: failed to re-upload %s: %v", tr.ObjectRef, err)
			continue
		}
		if newRef == tr.ObjectRef {
			continue
		}

		if err := r.transcriptionRepo.UpdateObjectRef(tr.ID, newRef); err != nil {
			log.Printf("Reuploader: failed to update transcription %d: %v", tr.ID, err)
			continue
		}
		moved++
		log.Printf("Reuploader: moved transcription %d to %s", tr.ID, newRef)
	}
	return moved
}
