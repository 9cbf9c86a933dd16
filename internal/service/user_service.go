package service

import (
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/plan"
	"github.com/transcriptflow/server/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
	quota    *QuotaService
}

func NewUserService(userRepo *repository.UserRepository, quota *QuotaService) *UserService {
	return &UserService{
		userRepo: userRepo,
		quota:    quota,
	}
}

// GetProfile 获取用户详情（含当前套餐）
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return buildUserInfo(s.quota, user), nil
}

// UpdateProfile 更新用户名和头像
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username != user.Username {
			exists, err := s.userRepo.ExistsByUsername(username)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrUsernameExists
			}
			user.Username = username
		}
	}

	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return buildUserInfo(s.quota, user), nil
}

// buildUserInfo 套餐查询失败时按 free 展示
func buildUserInfo(quota *QuotaService, user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		IsAdmin:   user.IsAdmin,
		CreatedAt: formatTime(user.CreatedAt),
	}
	if user.Email != nil {
		info.Email = *user.Email
	}
	if user.LastLogin != nil {
		info.LastLogin = formatTime(*user.LastLogin)
	}

	if quota != nil {
		p, err := quota.PlanForUser(user.ID)
		if err != nil {
			log.Printf("Failed to load plan for user %d: %v", user.ID, err)
			p = plan.Lookup(plan.Free)
		}
		info.Plan = p.Name
		info.PlanDisplay = p.DisplayName
	}
	return info
}
