package service

import (
	"time"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/repository"
)

const (
	DefaultDashboardDays = 30
	MaxDashboardDays     = 365
	recentActivityLimit  = 5
)

var activityLabels = map[string]string{
	model.ActivityTranscription:     "音频转写",
	model.ActivityYoutubeExtraction: "YouTube 音频提取",
	model.ActivityVideoExtraction:   "视频音频提取",
	model.ActivityTTSGeneration:     "语音合成",
	model.ActivityGPTRequest:        "GPT 请求",
}

// ActivityLabel 活动类型的展示名称
func ActivityLabel(activityType string) string {
	if label, ok := activityLabels[activityType]; ok {
		return label
	}
	return activityType
}

type DashboardService struct {
	activityRepo *repository.ActivityRepository
	quota        *QuotaService
	now          func() time.Time
}

func NewDashboardService(activityRepo *repository.ActivityRepository, quota *QuotaService) *DashboardService {
	return &DashboardService{
		activityRepo: activityRepo,
		quota:        quota,
		now:          time.Now,
	}
}

// clampDays 非正数取默认值，超过上限按上限
func clampDays(days int) int {
	if days <= 0 {
		return DefaultDashboardDays
	}
	if days > MaxDashboardDays {
		return MaxDashboardDays
	}
	return days
}

// Get 最近 days 天（含今天）的每日活动、合计、最近活动和用量
func (s *DashboardService) Get(rc RequestContext, days int) (*dto.DashboardResponse, error) {
	days = clampDays(days)
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	since := today.AddDate(0, 0, -(days - 1))

	counts, err := s.activityRepo.DailyCounts(rc.UserID, since)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(model.ActivityTypes))
	for _, t := range model.ActivityTypes {
		totals[t] = 0
	}
	daily := make([]dto.DailyActivity, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(repository.DayFormat)
		dayCounts := make(map[string]int64, len(model.ActivityTypes))
		for _, t := range model.ActivityTypes {
			n := counts[key][t]
			dayCounts[t] = n
			totals[t] += n
		}
		daily = append(daily, dto.DailyActivity{Date: key, Counts: dayCounts})
	}

	recent, err := s.activityRepo.Recent(rc.UserID, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ActivityItem, 0, len(recent))
	for _, a := range recent {
		items = append(items, dto.ActivityItem{
			Type:      a.ActivityType,
			Label:     ActivityLabel(a.ActivityType),
			Quantity:  a.Quantity,
			Details:   a.Details,
			CreatedAt: formatTime(a.CreatedAt),
		})
	}

	usage, err := s.quota.GetUsageReport(rc.UserID)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		Days:   days,
		Daily:  daily,
		Totals: totals,
		Recent: items,
		Usage:  usage,
	}, nil
}
