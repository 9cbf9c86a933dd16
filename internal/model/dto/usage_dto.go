package dto

// UsageItem 单项额度使用情况
type UsageItem struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

func NewUsageItem(used, limit int64) UsageItem {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return UsageItem{Used: used, Limit: limit, Remaining: remaining}
}

// UsageReport 当前计费周期的用量汇总
type UsageReport struct {
	Plan            string    `json:"plan"`
	PlanDisplay     string    `json:"plan_display"`
	PeriodStart     string    `json:"period_start"`
	Transcriptions  UsageItem `json:"transcriptions"`
	GPTRequests     UsageItem `json:"gpt_requests"`
	TTSCharacters   UsageItem `json:"tts_characters"`
	Models          []string  `json:"models"`
	MaxFileSizeMB   int       `json:"max_file_size_mb"`
	ConcurrentTasks int       `json:"concurrent_tasks"`
}
