package dto

// AdminStats 管理后台统计
type AdminStats struct {
	TotalUsers          int64   `json:"total_users"`
	PendingOrders       int64   `json:"pending_orders"`
	ActiveSubscriptions int64   `json:"active_subscriptions"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalDetections     int64   `json:"total_detections"`
}

// AdminUserInfo 用户列表项
type AdminUserInfo struct {
	ID                    int64  `json:"id"`
	Email                 string `json:"email"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Role                  string `json:"role"`
	CreatedAt             string `json:"created_at"`
	TotalDetections       int64  `json:"total_detections"`
	HasActiveSubscription bool   `json:"has_active_subscription"`
	SubscriptionPlan      string `json:"subscription_plan,omitempty"`
	DailyLimit            *int   `json:"daily_limit,omitempty"`
	DailyUsed             *int   `json:"daily_used,omitempty"`
}

// AdminOrderQuery 后台订单列表参数
type AdminOrderQuery struct {
	PageQuery
	Status string `form:"status"`
}

// UpdateRoleRequest 修改用户角色
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=USER ADMIN"`
}
