package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/transcriptflow/server/internal/model"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Upsert 每个用户每个服务只保留一把密钥
func (r *APIKeyRepository) Upsert(key *model.APIKey) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "service"}},
		DoUpdates: clause.AssignmentColumns([]string{"key_value", "updated_at"}),
	}).Create(key).Error
}

func (r *APIKeyRepository) Get(userID int64, service string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.Where("user_id = ? AND service = ?", userID, service).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) ListByUser(userID int64) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.Where("user_id = ?", userID).Order("service ASC").Find(&keys).Error
	return keys, err
}

func (r *APIKeyRepository) Delete(userID int64, service string) (bool, error) {
	result := r.db.Where("user_id = ? AND service = ?", userID, service).Delete(&model.APIKey{})
	return result.RowsAffected > 0, result.Error
}
