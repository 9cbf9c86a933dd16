package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.TranscriptionJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.TranscriptionJob, error) {
	var job model.TranscriptionJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByTaskID(taskID string) (*model.TranscriptionJob, error) {
	var job model.TranscriptionJob
	err := r.db.Where("task_id = ?", taskID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.TranscriptionJob) error {
	return r.db.Save(job).Error
}

func (r *JobRepository) UpdateStep(id int64, step string) error {
	return r.db.Model(&model.TranscriptionJob{}).Where("id = ?", id).Update("current_step", step).Error
}

// CountActiveForUser 统计用户排队中和执行中的任务数
func (r *JobRepository) CountActiveForUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.TranscriptionJob{}).
		Where("user_id = ? AND status IN ?", userID, []string{model.JobPending, model.JobStarted}).
		Count(&count).Error
	return count, err
}

// FailStale 把长时间未完成的任务标记为失败（worker 崩溃后残留）
func (r *JobRepository) FailStale(before time.Time, reason string) (int64, error) {
	now := time.Now()
	result := r.db.Model(&model.TranscriptionJob{}).
		Where("status IN ? AND created_at < ?", []string{model.JobPending, model.JobStarted}, before).
		Updates(map[string]interface{}{
			"status":        model.JobFailure,
			"error_kind":    "processing",
			"error_message": reason,
			"completed_at":  now,
		})
	return result.RowsAffected, result.Error
}
