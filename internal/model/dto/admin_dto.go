package dto

type SetPlanRequest struct {
	Plan         string `json:"plan" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"omitempty,min=0,max=3650"`
}

type SubscriptionInfo struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Plan      string `json:"plan"`
	Active    bool   `json:"active"`
	StartedAt string `json:"started_at"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
