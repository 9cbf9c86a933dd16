package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
)

type TranscriptionRepository struct {
	db *gorm.DB
}

func NewTranscriptionRepository(db *gorm.DB) *TranscriptionRepository {
	return &TranscriptionRepository{db: db}
}

func (r *TranscriptionRepository) Create(tr *model.Transcription) error {
	return r.db.Create(tr).Error
}

func (r *TranscriptionRepository) GetByID(id int64) (*model.Transcription, error) {
	var tr model.Transcription
	err := r.db.Where("id = ?", id).First(&tr).Error
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// GetByIDForUser 只返回属于该用户的记录，否则视为不存在
func (r *TranscriptionRepository) GetByIDForUser(id, userID int64) (*model.Transcription, error) {
	var tr model.Transcription
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&tr).Error
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// ListByUser 分页列出用户转写记录，列表不加载全文和片段
func (r *TranscriptionRepository) ListByUser(userID int64, page, pageSize int) ([]*model.Transcription, int64, error) {
	var list []*model.Transcription
	var total int64

	query := r.db.Model(&model.Transcription{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Select("id, user_id, filename, duration, model_used, task, language, object_ref, created_at").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&list).Error
	return list, total, err
}

// CountSince 统计用户自 since 起的转写条数，包含已删除的记录
func (r *TranscriptionRepository) CountSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Unscoped().Model(&model.Transcription{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *TranscriptionRepository) UpdateObjectRef(id int64, ref string) error {
	return r.db.Model(&model.Transcription{}).Where("id = ?", id).Update("object_ref", ref).Error
}

// ListByObjectRefPrefix 查找对象引用带指定前缀的记录（本地回退存储待迁移）
func (r *TranscriptionRepository) ListByObjectRefPrefix(prefix string, limit int) ([]*model.Transcription, error) {
	var list []*model.Transcription
	err := r.db.Select("id, user_id, object_ref").
		Where("object_ref LIKE ?", prefix+"%").
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *TranscriptionRepository) DeleteForUser(id, userID int64) (bool, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Transcription{})
	return result.RowsAffected > 0, result.Error
}
