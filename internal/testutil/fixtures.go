package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	email := fmt.Sprintf("test_%d@example.com", n)
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", n),
		Email:        &email,
		PasswordHash: &passwordHash,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = &hash
	}
}

// WithGithubID 设置 GitHub ID
func WithGithubID(id string) func(*model.User) {
	return func(u *model.User) {
		u.GithubID = &id
	}
}

// WithAdmin 设置为管理员
func WithAdmin() func(*model.User) {
	return func(u *model.User) {
		u.IsAdmin = true
	}
}

// TestSubscription 创建一条有效订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, planName string, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserID:    userID,
		Plan:      planName,
		Active:    true,
		StartedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}
	// Active 带 default:true，零值 false 需要显式写回
	if !sub.Active {
		db.Model(sub).Update("active", false)
	}

	return sub
}

// WithStartedAt 设置订阅开始时间
func WithStartedAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.StartedAt = at
	}
}

// WithExpiresAt 设置订阅过期时间
func WithExpiresAt(at time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ExpiresAt = &at
	}
}

// WithInactive 设置为失效订阅
func WithInactive() func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Active = false
	}
}

// TestTranscription 创建测试转写记录
func TestTranscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Transcription)) *model.Transcription {
	t.Helper()

	segments, _ := json.Marshal([]model.Segment{
		{Start: 0, End: 2.5, Text: "hello"},
		{Start: 2.5, End: 5, Text: "world"},
	})
	tr := &model.Transcription{
		UserID:    userID,
		Filename:  fmt.Sprintf("audio_%d.wav", nextSeq()),
		Duration:  5,
		ModelUsed: "base",
		Task:      "transcribe",
		Text:      "hello world",
		Segments:  segments,
	}

	for _, opt := range opts {
		opt(tr)
	}

	if err := db.Create(tr).Error; err != nil {
		t.Fatalf("Failed to create test transcription: %v", err)
	}

	return tr
}

// WithTranscriptionCreatedAt 设置创建时间
func WithTranscriptionCreatedAt(at time.Time) func(*model.Transcription) {
	return func(tr *model.Transcription) {
		tr.CreatedAt = at
	}
}

// WithText 设置转写文本
func WithText(text string) func(*model.Transcription) {
	return func(tr *model.Transcription) {
		tr.Text = text
	}
}

// TestActivity 创建测试活动记录
func TestActivity(t *testing.T, db *gorm.DB, userID int64, activityType string, opts ...func(*model.UserActivity)) *model.UserActivity {
	t.Helper()

	a := &model.UserActivity{
		UserID:       userID,
		ActivityType: activityType,
		Quantity:     1,
	}

	for _, opt := range opts {
		opt(a)
	}

	if err := db.Create(a).Error; err != nil {
		t.Fatalf("Failed to create test activity: %v", err)
	}

	return a
}

// WithActivityCreatedAt 设置活动时间
func WithActivityCreatedAt(at time.Time) func(*model.UserActivity) {
	return func(a *model.UserActivity) {
		a.CreatedAt = at
	}
}

// WithQuantity 设置用量
func WithQuantity(q int) func(*model.UserActivity) {
	return func(a *model.UserActivity) {
		a.Quantity = q
	}
}

// TestJob 创建测试异步任务
func TestJob(t *testing.T, db *gorm.DB, userID int64, status string) *model.TranscriptionJob {
	t.Helper()

	n := nextSeq()
	job := &model.TranscriptionJob{
		TaskID:   fmt.Sprintf("task-%d", n),
		UserID:   userID,
		AudioRef: fmt.Sprintf("minio://audio-files/%d/audio_%d.wav", userID, n),
		Filename: fmt.Sprintf("audio_%d.wav", n),
		Model:    "base",
		Status:   status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
