package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/plan"
	"github.com/transcriptflow/server/internal/repository"
)

const bytesPerMB = 1024 * 1024

type QuotaService struct {
	subRepo           *repository.SubscriptionRepository
	transcriptionRepo *repository.TranscriptionRepository
	activityRepo      *repository.ActivityRepository
	jobRepo           *repository.JobRepository
	now               func() time.Time
}

func NewQuotaService(
	subRepo *repository.SubscriptionRepository,
	transcriptionRepo *repository.TranscriptionRepository,
	activityRepo *repository.ActivityRepository,
	jobRepo *repository.JobRepository,
) *QuotaService {
	return &QuotaService{
		subRepo:           subRepo,
		transcriptionRepo: transcriptionRepo,
		activityRepo:      activityRepo,
		jobRepo:           jobRepo,
		now:               time.Now,
	}
}

// CurrentPeriodStart 计费周期为自然月，按服务器本地时区
func CurrentPeriodStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// PlanForUser 当前生效套餐，没有有效订阅时为 free
func (s *QuotaService) PlanForUser(userID int64) (plan.Definition, error) {
	sub, err := s.subRepo.ActiveForUser(userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return plan.Lookup(plan.Free), nil
		}
		return plan.Definition{}, fmt.Errorf("load subscription: %w", err)
	}
	return plan.Lookup(sub.Plan), nil
}

// CountTranscriptionsInPeriod 周期内转写条数
// 套餐字段名为 minutes，但计量按条数，与历史行为保持一致
func (s *QuotaService) CountTranscriptionsInPeriod(userID int64, start time.Time) (int64, error) {
	return s.transcriptionRepo.CountSince(userID, start)
}

func (s *QuotaService) HasTranscriptionQuota(userID int64) (bool, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return false, err
	}
	count, err := s.CountTranscriptionsInPeriod(userID, CurrentPeriodStart(s.now()))
	if err != nil {
		return false, err
	}
	return count < int64(p.TranscriptionMinutes), nil
}

func (s *QuotaService) ModelTierAllowed(userID int64, tier string) (bool, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return false, err
	}
	return p.AllowsModel(tier), nil
}

// FileSizeAllowed 等于上限时允许
func (s *QuotaService) FileSizeAllowed(userID int64, sizeMB float64) (bool, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return false, err
	}
	return sizeMB <= float64(p.MaxFileSizeMB), nil
}

// UploadLimitBytes 套餐允许的单文件字节数，供上传入口提前截断请求体
func (s *QuotaService) UploadLimitBytes(userID int64) (int64, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return 0, err
	}
	return int64(p.MaxFileSizeMB) * bytesPerMB, nil
}

func (s *QuotaService) HasGPTQuota(userID int64) (bool, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return false, err
	}
	count, err := s.activityRepo.CountSince(userID, model.ActivityGPTRequest, CurrentPeriodStart(s.now()))
	if err != nil {
		return false, err
	}
	return count < int64(p.GPTRequests), nil
}

// TTSCharactersAllowed 本周期已用字符数加上 n 不超过套餐额度
func (s *QuotaService) TTSCharactersAllowed(userID int64, n int) (bool, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return false, err
	}
	used, err := s.activityRepo.SumQuantitySince(userID, model.ActivityTTSGeneration, CurrentPeriodStart(s.now()))
	if err != nil {
		return false, err
	}
	return used+int64(n) <= int64(p.TTSCharacters), nil
}

func (s *QuotaService) HasConcurrencySlot(userID int64) (bool, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return false, err
	}
	active, err := s.jobRepo.CountActiveForUser(userID)
	if err != nil {
		return false, err
	}
	return active < int64(p.ConcurrentTasks), nil
}

// RecordActivity 追加一条用量记录
func (s *QuotaService) RecordActivity(userID int64, category, detail string) error {
	return s.RecordActivityQuantity(userID, category, detail, 1)
}

func (s *QuotaService) RecordActivityQuantity(userID int64, category, detail string, quantity int) error {
	return s.activityRepo.Create(&model.UserActivity{
		UserID:       userID,
		ActivityType: category,
		Quantity:     quantity,
		Details:      detail,
	})
}

// recordActivityBestEffort 结果已经持久化，记账失败只记日志
func (s *QuotaService) recordActivityBestEffort(userID int64, category, detail string, quantity int) {
	if err := s.RecordActivityQuantity(userID, category, detail, quantity); err != nil {
		log.Printf("Failed to record %s activity for user %d: %v", category, userID, err)
	}
}

// GetUsageReport 当前周期用量
func (s *QuotaService) GetUsageReport(userID int64) (*dto.UsageReport, error) {
	p, err := s.PlanForUser(userID)
	if err != nil {
		return nil, err
	}
	start := CurrentPeriodStart(s.now())

	transcriptions, err := s.CountTranscriptionsInPeriod(userID, start)
	if err != nil {
		return nil, err
	}
	gpt, err := s.activityRepo.CountSince(userID, model.ActivityGPTRequest, start)
	if err != nil {
		return nil, err
	}
	tts, err := s.activityRepo.SumQuantitySince(userID, model.ActivityTTSGeneration, start)
	if err != nil {
		return nil, err
	}

	return &dto.UsageReport{
		Plan:            p.Name,
		PlanDisplay:     p.DisplayName,
		PeriodStart:     start.Format(time.RFC3339),
		Transcriptions:  dto.NewUsageItem(transcriptions, int64(p.TranscriptionMinutes)),
		GPTRequests:     dto.NewUsageItem(gpt, int64(p.GPTRequests)),
		TTSCharacters:   dto.NewUsageItem(tts, int64(p.TTSCharacters)),
		Models:          p.Models,
		MaxFileSizeMB:   p.MaxFileSizeMB,
		ConcurrentTasks: p.ConcurrentTasks,
	}, nil
}

// checkAllowed 把 (bool, error) 形式的检查转换为业务错误
// 用法: checkAllowed(ErrQuotaExceeded)(s.quota.HasTranscriptionQuota(userID))
func checkAllowed(denied *Error) func(ok bool, err error) error {
	return func(ok bool, err error) error {
		if err != nil {
			return persistenceError(err)
		}
		if !ok {
			return denied
		}
		return nil
	}
}

func sizeInMB(bytes int64) float64 {
	return float64(bytes) / bytesPerMB
}
