package cron

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/transcriptflow/server/internal/repository"
)

// staleJobReason 残留任务的失败原因
const staleJobReason = "任务超时未完成，请重新提交"

// Summary 一次清理的结果
type Summary struct {
	ExpiredSubscriptions int64
	FailedJobs           int64
	RemovedTempDirs      int
}

type Service struct {
	subRepo       *repository.SubscriptionRepository
	jobRepo       *repository.JobRepository
	uploadTempDir string
	expireHours   int
	interval      time.Duration
	now           func() time.Time
	stopChan      chan struct{}
}

func NewService(
	subRepo *repository.SubscriptionRepository,
	jobRepo *repository.JobRepository,
	uploadTempDir string,
	expireHours int,
) *Service {
	return &Service{
		subRepo:       subRepo,
		jobRepo:       jobRepo,
		uploadTempDir: uploadTempDir,
		expireHours:   expireHours,
		interval:      time.Hour,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.run()
	log.Println("Cron service started (subscription expiry + stale jobs + temp cleanup)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// run 每小时执行一次全量清理
func (s *Service) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce 立即执行一轮清理（cmd/cleanup 直接调用）
func (s *Service) RunOnce() Summary {
	expire := s.expireDuration()
	sum := Summary{
		ExpiredSubscriptions: s.expireSubscriptions(),
		FailedJobs:           s.failStaleJobs(expire),
		RemovedTempDirs:      s.cleanupTempDirs(expire),
	}
	if sum.ExpiredSubscriptions > 0 || sum.FailedJobs > 0 || sum.RemovedTempDirs > 0 {
		log.Printf("Cleanup summary: subscriptions=%d, jobs=%d, temp_dirs=%d",
			sum.ExpiredSubscriptions, sum.FailedJobs, sum.RemovedTempDirs)
	}
	return sum
}

func (s *Service) expireDuration() time.Duration {
	hours := s.expireHours
	if hours <= 0 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// expireSubscriptions 到期订阅置为失效
func (s *Service) expireSubscriptions() int64 {
	if s.subRepo == nil {
		return 0
	}
	n, err := s.subRepo.ExpireDue(s.now())
	if err != nil {
		log.Printf("Cleanup subscriptions: %v", err)
		return 0
	}
	return n
}

// failStaleJobs worker 崩溃后残留的 pending/started 任务标记为失败
func (s *Service) failStaleJobs(expire time.Duration) int64 {
	if s.jobRepo == nil {
		return 0
	}
	n, err := s.jobRepo.FailStale(s.now().Add(-expire), staleJobReason)
	if err != nil {
		log.Printf("Cleanup stale jobs: %v", err)
		return 0
	}
	return n
}

// cleanupTempDirs 清理过期的转写/提取临时目录
func (s *Service) cleanupTempDirs(expire time.Duration) int {
	if s.uploadTempDir == "" {
		return 0
	}

	entries, err := os.ReadDir(s.uploadTempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Cleanup temp dirs: failed to read dir %s: %v", s.uploadTempDir, err)
		}
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if s.now().Sub(info.ModTime()) > expire {
			dirPath := filepath.Join(s.uploadTempDir, entry.Name())
			if err := os.RemoveAll(dirPath); err != nil {
				log.Printf("Cleanup temp dirs: failed to remove %s: %v", dirPath, err)
			} else {
				cleaned++
			}
		}
	}
	return cleaned
}
