package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/jwt"
	"github.com/transcriptflow/server/internal/pkg/oauth"
	"github.com/transcriptflow/server/internal/repository"
)

var (
	ErrEmailExists         = errors.New("邮箱已被注册")
	ErrUsernameExists      = errors.New("用户名已被使用")
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrWrongPassword       = errors.New("原密码错误")
	ErrInvalidResetToken   = errors.New("重置链接无效或已过期")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrOAuthNotConfigured  = errors.New("未开启 GitHub 登录")
	ErrInvalidOAuthState   = errors.New("登录请求已失效，请重新登录")
	ErrEmailDeliveryFailed = errors.New("邮件发送失败，请稍后重试")
)

// Mailer 邮件发送
type Mailer interface {
	SendPasswordReset(to, username, resetLink string, expireMinutes int) error
	SendWelcome(to, username string) error
}

// GithubProvider GitHub OAuth 客户端
type GithubProvider interface {
	Configured() bool
	GetAuthURL(state string) string
	FetchUser(ctx context.Context, code string) (*oauth.GithubUser, error)
}

// OAuthStateStore OAuth state 存储
type OAuthStateStore interface {
	GenerateState(ctx context.Context, redirectURI string) (string, error)
	ValidateState(ctx context.Context, state string) (string, error)
}

type AuthService struct {
	userRepo *repository.UserRepository
	quota    *QuotaService
	mailer   Mailer
	github   GithubProvider
	states   OAuthStateStore
	cfg      *config.Config
	now      func() time.Time
}

// NewAuthService mailer、github、states 可为 nil，对应功能关闭
func NewAuthService(
	userRepo *repository.UserRepository,
	quota *QuotaService,
	mailer Mailer,
	github GithubProvider,
	states OAuthStateStore,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		quota:    quota,
		mailer:   mailer,
		github:   github,
		states:   states,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Register 用户注册
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByUsername(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	exists, err = s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        &email,
		PasswordHash: &hash,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	log.Printf("User registered: id=%d username=%s", user.ID, user.Username)

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(email, username); err != nil {
			log.Printf("Failed to send welcome email to user %d: %v", user.ID, err)
		}
	}

	return &dto.RegisterResponse{UserID: user.ID}, nil
}

// Login 按用户名登录，成功后更新最后登录时间
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// ChangePassword 修改密码需要验证原密码
func (s *AuthService) ChangePassword(userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordHash == nil {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(userID, hash)
}

// RequestPasswordReset 发送重置链接，邮箱未注册时静默返回
func (s *AuthService) RequestPasswordReset(req *dto.ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := jwt.GenerateResetToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ResetExpireMins)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s",
		strings.TrimRight(s.cfg.Server.PublicBaseURL, "/"), url.QueryEscape(token))

	if s.mailer == nil {
		log.Printf("Mailer not configured, password reset for user %d not sent", user.ID)
		return ErrEmailDeliveryFailed
	}
	if err := s.mailer.SendPasswordReset(email, user.Username, link, s.cfg.JWT.ResetExpireMins); err != nil {
		log.Printf("Failed to send password reset email to user %d: %v", user.ID, err)
		return ErrEmailDeliveryFailed
	}
	return nil
}

// ResetPassword 用重置 token 设置新密码
func (s *AuthService) ResetPassword(req *dto.ResetPasswordRequest) error {
	claims, err := jwt.ParseResetToken(req.Token, s.cfg.JWT.Secret)
	if err != nil {
		return ErrInvalidResetToken
	}
	if _, err := s.userRepo.GetByID(claims.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(claims.UserID, hash)
}

// GithubAuthURL 生成 state 并返回 GitHub 授权地址
func (s *AuthService) GithubAuthURL(ctx context.Context, redirectURI string) (string, error) {
	if s.github == nil || s.states == nil || !s.github.Configured() {
		return "", ErrOAuthNotConfigured
	}
	state, err := s.states.GenerateState(ctx, redirectURI)
	if err != nil {
		return "", err
	}
	return s.github.GetAuthURL(state), nil
}

// GithubCallback 处理回调，首次登录时创建用户，返回 token 和前端回跳地址
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, string, error) {
	if s.github == nil || s.states == nil || !s.github.Configured() {
		return nil, "", ErrOAuthNotConfigured
	}
	redirectURI, err := s.states.ValidateState(ctx, state)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			return nil, "", ErrInvalidOAuthState
		}
		return nil, "", err
	}

	githubUser, err := s.github.FetchUser(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("github login: %w", err)
	}
	githubID := fmt.Sprintf("%d", githubUser.ID)

	user, err := s.userRepo.GetByGithubID(githubID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}
	if user == nil {
		user, err = s.createGithubUser(githubUser, githubID)
		if err != nil {
			return nil, "", err
		}
	}

	resp, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return resp, redirectURI, nil
}

func (s *AuthService) createGithubUser(gu *oauth.GithubUser, githubID string) (*model.User, error) {
	user := &model.User{
		Username:  gu.Login,
		GithubID:  &githubID,
		AvatarURL: gu.AvatarURL,
	}

	// 邮箱已被占用时不绑定
	if gu.Email != "" {
		email := strings.ToLower(gu.Email)
		if exists, err := s.userRepo.ExistsByEmail(email); err == nil && !exists {
			user.Email = &email
		}
	}
	if exists, _ := s.userRepo.ExistsByUsername(user.Username); exists {
		user.Username = fmt.Sprintf("%s_%s", gu.Login, githubID)
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("create github user: %w", err)
	}
	log.Printf("User registered via GitHub: id=%d username=%s", user.ID, user.Username)
	return user, nil
}

func (s *AuthService) issueToken(user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(user.ID, now); err != nil {
		log.Printf("Failed to update last login for user %d: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(s.quota, user),
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
