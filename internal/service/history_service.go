package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/textproc"
)

const maxPageSize = 100

type HistoryService struct {
	transcriptionRepo *repository.TranscriptionRepository
	store             storage.Store
}

func NewHistoryService(transcriptionRepo *repository.TranscriptionRepository, store storage.Store) *HistoryService {
	return &HistoryService{
		transcriptionRepo: transcriptionRepo,
		store:             store,
	}
}

// normalizePage 页码从 1 开始，每页默认 20 条
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *HistoryService) List(rc RequestContext, page, pageSize int) ([]*dto.TranscriptionListItem, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := s.transcriptionRepo.ListByUser(rc.UserID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.TranscriptionListItem, len(rows))
	for i, tr := range rows {
		items[i] = &dto.TranscriptionListItem{
			ID:        tr.ID,
			Filename:  tr.Filename,
			Duration:  tr.Duration,
			Model:     tr.ModelUsed,
			Task:      tr.Task,
			Language:  tr.Language,
			CreatedAt: formatTime(tr.CreatedAt),
		}
	}
	return items, total, nil
}

func (s *HistoryService) load(rc RequestContext, id int64) (*model.Transcription, error) {
	tr, err := s.transcriptionRepo.GetByIDForUser(id, rc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTranscriptionNotFound
		}
		return nil, err
	}
	return tr, nil
}

func (s *HistoryService) Get(rc RequestContext, id int64) (*dto.TranscriptionResponse, error) {
	tr, err := s.load(rc, id)
	if err != nil {
		return nil, err
	}
	return toTranscriptionResponse(tr), nil
}

// Chapters 按 60 秒窗口切分章节
func (s *HistoryService) Chapters(rc RequestContext, id int64) (*dto.ChaptersResponse, error) {
	tr, err := s.load(rc, id)
	if err != nil {
		return nil, err
	}
	return &dto.ChaptersResponse{
		TranscriptionID: tr.ID,
		Chapters:        textproc.Chapters(decodeSegments(tr), textproc.ChapterWindowSecond),
	}, nil
}

// Export 生成 txt 导出文件写入 exports 桶并返回下载链接
func (s *HistoryService) Export(ctx context.Context, rc RequestContext, id int64) (*dto.ExportResponse, error) {
	tr, err := s.load(rc, id)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(tr.Filename, filepath.Ext(tr.Filename))
	key := storage.ObjectKey(rc.UserID, fmt.Sprintf("%s_%d_%s.txt", base, tr.ID, shortID()))
	ref, err := s.store.Put(ctx, storage.BucketExports, key, []byte(exportText(tr)), storage.ContentTypeFor(".txt"))
	if err != nil {
		return nil, persistenceError(err)
	}

	resp := &dto.ExportResponse{ObjectRef: ref}
	if u, err := s.store.PresignedURL(ctx, ref, storage.DefaultPresignExpiry); err == nil {
		resp.DownloadURL = u
	} else {
		log.Printf("Failed to presign export %s: %v", ref, err)
	}
	return resp, nil
}

// DownloadURL 转写文本对象的预签名下载链接
func (s *HistoryService) DownloadURL(ctx context.Context, rc RequestContext, id int64) (*dto.ExportResponse, error) {
	tr, err := s.load(rc, id)
	if err != nil {
		return nil, err
	}
	if tr.ObjectRef == "" {
		return nil, ErrTranscriptionNotFound
	}
	u, err := s.store.PresignedURL(ctx, tr.ObjectRef, storage.DefaultPresignExpiry)
	if err != nil {
		return nil, persistenceError(err)
	}
	return &dto.ExportResponse{ObjectRef: tr.ObjectRef, DownloadURL: u}, nil
}

// Delete 删除记录，存储对象尽力删除
func (s *HistoryService) Delete(ctx context.Context, rc RequestContext, id int64) error {
	tr, err := s.load(rc, id)
	if err != nil {
		return err
	}
	deleted, err := s.transcriptionRepo.DeleteForUser(id, rc.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTranscriptionNotFound
	}
	if tr.ObjectRef != "" {
		if err := s.store.Delete(ctx, tr.ObjectRef); err != nil {
			log.Printf("Failed to delete object %s of transcription %d: %v", tr.ObjectRef, id, err)
		}
	}
	return nil
}

func decodeSegments(tr *model.Transcription) []model.Segment {
	segments := []model.Segment{}
	if len(tr.Segments) == 0 {
		return segments
	}
	if err := json.Unmarshal(tr.Segments, &segments); err != nil {
		log.Printf("Failed to decode segments of transcription %d: %v", tr.ID, err)
	}
	return segments
}

// exportText 有分段时逐段带时间戳输出，否则输出全文
func exportText(tr *model.Transcription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", tr.Filename)
	fmt.Fprintf(&b, "model: %s  task: %s  language: %s\n\n", tr.ModelUsed, tr.Task, tr.Language)

	segments := decodeSegments(tr)
	if len(segments) == 0 {
		b.WriteString(tr.Text)
		b.WriteString("\n")
		return b.String()
	}
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s - %s] %s\n",
			textproc.FormatTimestamp(seg.Start), textproc.FormatTimestamp(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String()
}
