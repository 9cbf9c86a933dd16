package service

import (
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/plan"
	"github.com/transcriptflow/server/internal/repository"
)

type AdminService struct {
	userRepo *repository.UserRepository
	subRepo  *repository.SubscriptionRepository
	quota    *QuotaService
	now      func() time.Time
}

func NewAdminService(userRepo *repository.UserRepository, subRepo *repository.SubscriptionRepository, quota *QuotaService) *AdminService {
	return &AdminService{
		userRepo: userRepo,
		subRepo:  subRepo,
		quota:    quota,
		now:      time.Now,
	}
}

func (s *AdminService) ListUsers(rc RequestContext, page, pageSize int) ([]*dto.UserInfo, int64, error) {
	if !rc.IsAdmin {
		return nil, 0, ErrPermissionDenied
	}
	page, pageSize = normalizePage(page, pageSize)
	users, total, err := s.userRepo.List(page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.UserInfo, len(users))
	for i, u := range users {
		items[i] = buildUserInfo(s.quota, u)
	}
	return items, total, nil
}

// SetPlan 停用用户现有订阅并创建新订阅，DurationDays 为 0 表示不过期
func (s *AdminService) SetPlan(rc RequestContext, userID int64, req *dto.SetPlanRequest) (*dto.SubscriptionInfo, error) {
	if !rc.IsAdmin {
		return nil, ErrPermissionDenied
	}
	name := strings.ToLower(strings.TrimSpace(req.Plan))
	if !plan.Valid(name) {
		return nil, ErrInvalidPlan
	}
	if req.DurationDays < 0 {
		return nil, ErrInvalidPlan
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	sub := &model.Subscription{
		UserID:    userID,
		Plan:      name,
		Active:    true,
		StartedAt: now,
	}
	if req.DurationDays > 0 {
		expires := now.AddDate(0, 0, req.DurationDays)
		sub.ExpiresAt = &expires
	}
	if err := s.subRepo.Replace(sub); err != nil {
		return nil, err
	}

	log.Printf("Admin %d set plan of user %d to %s (days=%d)", rc.UserID, userID, name, req.DurationDays)
	return toSubscriptionInfo(sub), nil
}

func (s *AdminService) ListSubscriptions(rc RequestContext, userID int64) ([]*dto.SubscriptionInfo, error) {
	if !rc.IsAdmin {
		return nil, ErrPermissionDenied
	}
	subs, err := s.subRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.SubscriptionInfo, len(subs))
	for i, sub := range subs {
		items[i] = toSubscriptionInfo(sub)
	}
	return items, nil
}

func toSubscriptionInfo(sub *model.Subscription) *dto.SubscriptionInfo {
	info := &dto.SubscriptionInfo{
		ID:        sub.ID,
		UserID:    sub.UserID,
		Plan:      sub.Plan,
		Active:    sub.Active,
		StartedAt: formatTime(sub.StartedAt),
	}
	if sub.ExpiresAt != nil {
		info.ExpiresAt = formatTime(*sub.ExpiresAt)
	}
	return info
}
