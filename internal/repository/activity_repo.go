package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
)

// DayFormat 仪表盘按天聚合使用的日期格式
const DayFormat = "2006-01-02"

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(a *model.UserActivity) error {
	return r.db.Create(a).Error
}

// CountSince 统计某类活动自 since 起的条数
func (r *ActivityRepository) CountSince(userID int64, activityType string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.UserActivity{}).
		Where("user_id = ? AND activity_type = ? AND created_at >= ?", userID, activityType, since).
		Count(&count).Error
	return count, err
}

// SumQuantitySince 累计某类活动自 since 起的用量
func (r *ActivityRepository) SumQuantitySince(userID int64, activityType string, since time.Time) (int64, error) {
	var sum int64
	err := r.db.Model(&model.UserActivity{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("user_id = ? AND activity_type = ? AND created_at >= ?", userID, activityType, since).
		Scan(&sum).Error
	return sum, err
}

// Recent 最近的 limit 条活动
func (r *ActivityRepository) Recent(userID int64, limit int) ([]*model.UserActivity, error) {
	var list []*model.UserActivity
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// DailyCounts 按本地日期和活动类型聚合 since 之后的活动条数
// 聚合在内存中完成，避免各数据库 DATE() 时区处理不一致
func (r *ActivityRepository) DailyCounts(userID int64, since time.Time) (map[string]map[string]int64, error) {
	var rows []struct {
		ActivityType string
		CreatedAt    time.Time
	}
	err := r.db.Model(&model.UserActivity{}).
		Select("activity_type, created_at").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[string]int64)
	for _, row := range rows {
		day := row.CreatedAt.In(since.Location()).Format(DayFormat)
		if counts[day] == nil {
			counts[day] = make(map[string]int64)
		}
		counts[day][row.ActivityType]++
	}
	return counts, nil
}
