package dto

// PlanInfo 套餐信息
type PlanInfo struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	DailyLimit  int     `json:"daily_limit"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
}

// SubscriptionStatus 当前订阅状态
type SubscriptionStatus struct {
	HasActiveSubscription bool   `json:"has_active_subscription"`
	Status                string `json:"status,omitempty"`
	PlanName              string `json:"plan_name,omitempty"`
	DailyLimit            int    `json:"daily_limit,omitempty"`
	DailyUsed             int    `json:"daily_used"`
	StartAt               string `json:"start_at,omitempty"`
	EndAt                 string `json:"end_at,omitempty"`
	APIKeyHint            string `json:"api_key_hint,omitempty"`
}

// APIKeyInfo 当前可用的 API Key（仅返回给所有者）
type APIKeyInfo struct {
	Key       string `json:"key"`
	ExpiresAt string `json:"expires_at"`
}

// QuotaInfo 配额信息
type QuotaInfo struct {
	PlanName    string `json:"plan_name,omitempty"`
	DailyLimit  int    `json:"daily_limit"`
	DailyUsed   int    `json:"daily_used"`
	DailyRemain int    `json:"daily_remain"`
	ResetAt     string `json:"reset_at,omitempty"`
}
