package dto

type DailyActivity struct {
	Date   string           `json:"date"`
	Counts map[string]int64 `json:"counts"`
}

type ActivityItem struct {
	Type      string `json:"type"`
	Label     string `json:"label"`
	Quantity  int    `json:"quantity"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

type DashboardResponse struct {
	Days   int              `json:"days"`
	Daily  []DailyActivity  `json:"daily"`
	Totals map[string]int64 `json:"totals"`
	Recent []ActivityItem   `json:"recent"`
	Usage  *UsageReport     `json:"usage"`
}
