package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

// ActiveForUser 返回用户当前生效的订阅
// 同时存在多条有效订阅时取最近开始的一条，开始时间相同再按 id 取最新
func (r *SubscriptionRepository) ActiveForUser(userID int64, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ? AND active = ?", userID, true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Order("started_at DESC").
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListByUser(userID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Order("id DESC").
		Find(&subs).Error
	return subs, err
}

// Replace 在同一事务内停用用户所有有效订阅并写入新订阅
func (r *SubscriptionRepository) Replace(sub *model.Subscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Subscription{}).
			Where("user_id = ? AND active = ?", sub.UserID, true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
}

// ExpireDue 将已过期但仍标记为有效的订阅置为失效，返回影响行数
func (r *SubscriptionRepository) ExpireDue(now time.Time) (int64, error) {
	result := r.db.Model(&model.Subscription{}).
		Where("active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Update("active", false)
	return result.RowsAffected, result.Error
}
