package dto

// CreateOrderRequest 提交付款订单
type CreateOrderRequest struct {
	PlanName       string  `json:"plan_name" binding:"required,max=20"`
	Amount         float64 `json:"amount" binding:"required,gt=0"`
	PaymentRef     string  `json:"payment_ref" binding:"required,min=4,max=50"`
	TransactionRef string  `json:"transaction_ref" binding:"required,min=4,max=100"`
	UserNote       string  `json:"user_note" binding:"omitempty,max=1000"`
}

// ReviewOrderRequest 管理员审核
type ReviewOrderRequest struct {
	Action    string `json:"action" binding:"required,oneof=approve reject"`
	AdminNote string `json:"admin_note" binding:"omitempty,max=1000"`
}

// OrderInfo 订单信息，付款号码只保留后四位
type OrderInfo struct {
	ID             int64   `json:"id"`
	PlanName       string  `json:"plan_name"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PaymentRef     string  `json:"payment_ref"`
	TransactionRef string  `json:"transaction_ref"`
	Status         string  `json:"status"`
	UserNote       string  `json:"user_note,omitempty"`
	AdminNote      string  `json:"admin_note,omitempty"`
	ReviewedAt     string  `json:"reviewed_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// AdminOrderInfo 管理后台订单信息
type AdminOrderInfo struct {
	OrderInfo
	UserID    int64  `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// ReviewResult 审核结果，不包含 API Key
type ReviewResult struct {
	OrderID        int64  `json:"order_id"`
	Status         string `json:"status"`
	SubscriptionID *int64 `json:"subscription_id,omitempty"`
	EndAt          string `json:"end_at,omitempty"`
}
