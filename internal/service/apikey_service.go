package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/secret"
	"github.com/transcriptflow/server/internal/repository"
)

const ServiceOpenAI = "openai"

var supportedServices = map[string]bool{
	ServiceOpenAI: true,
}

type APIKeyService struct {
	keyRepo *repository.APIKeyRepository
	box     *secret.Box
	cfg     *config.Config
}

func NewAPIKeyService(keyRepo *repository.APIKeyRepository, cfg *config.Config) *APIKeyService {
	return &APIKeyService{
		keyRepo: keyRepo,
		box:     secret.New(cfg.Security.EncryptionKey),
		cfg:     cfg,
	}
}

// ValidateKeyFormat openai 密钥以 sk- 开头且长度大于 20，其他服务长度大于 8
func ValidateKeyFormat(service, key string) bool {
	if service == ServiceOpenAI {
		return strings.HasPrefix(key, "sk-") && len(key) > 20
	}
	return len(key) > 8
}

// MaskKey 保留前 4 位和后 4 位
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func (s *APIKeyService) Save(rc RequestContext, req *dto.SaveAPIKeyRequest) (*dto.APIKeyInfo, error) {
	service := strings.ToLower(strings.TrimSpace(req.Service))
	key := strings.TrimSpace(req.Key)
	if !supportedServices[service] {
		return nil, ErrUnsupportedService
	}
	if !ValidateKeyFormat(service, key) {
		return nil, ErrInvalidAPIKey
	}

	sealed, err := s.box.Seal(key)
	if err != nil {
		return nil, persistenceError(fmt.Errorf("seal api key: %w", err))
	}
	record := &model.APIKey{UserID: rc.UserID, Service: service, KeyValue: sealed}
	if err := s.keyRepo.Upsert(record); err != nil {
		return nil, persistenceError(err)
	}

	return &dto.APIKeyInfo{
		Service:   service,
		MaskedKey: MaskKey(key),
		UpdatedAt: time.Now().Format(time.RFC3339),
	}, nil
}

func (s *APIKeyService) List(rc RequestContext) ([]*dto.APIKeyInfo, error) {
	keys, err := s.keyRepo.ListByUser(rc.UserID)
	if err != nil {
		return nil, err
	}

	infos := make([]*dto.APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		masked := "********"
		if plain, err := s.box.Open(k.KeyValue); err == nil {
			masked = MaskKey(plain)
		}
		infos = append(infos, &dto.APIKeyInfo{
			Service:   k.Service,
			MaskedKey: masked,
			UpdatedAt: k.UpdatedAt.Format(time.RFC3339),
		})
	}
	return infos, nil
}

func (s *APIKeyService) Delete(rc RequestContext, service string) (bool, error) {
	return s.keyRepo.Delete(rc.UserID, strings.ToLower(service))
}

// Resolve 用户自己的密钥优先，其次是服务器配置的密钥
func (s *APIKeyService) Resolve(userID int64, service string) (string, error) {
	k, err := s.keyRepo.Get(userID, service)
	switch {
	case err == nil:
		plain, openErr := s.box.Open(k.KeyValue)
		if openErr == nil {
			return plain, nil
		}
		// 加密密钥轮换后旧记录无法解密，回退到服务器密钥
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", persistenceError(err)
	}

	if service == ServiceOpenAI && s.cfg.OpenAI.APIKey != "" {
		return s.cfg.OpenAI.APIKey, nil
	}
	return "", ErrMissingAPIKey
}
