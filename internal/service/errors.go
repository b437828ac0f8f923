package service

import "errors"

// 校验类错误
var (
	ErrInvalidPlan  = errors.New("套餐不存在")
	ErrInvalidOrder = errors.New("订单信息不完整")
	ErrInvalidRole  = errors.New("角色只能是 USER 或 ADMIN")
	ErrInvalidDate  = errors.New("日期格式应为 YYYY-MM-DD")
)

// 冲突类错误，调用方应提示“已处理”而不是“参数错误”
var (
	ErrDuplicateTransaction = errors.New("该交易号已提交过")
	ErrOrderAlreadyReviewed = errors.New("订单已审核")
	ErrReviewInProgress     = errors.New("该用户的订单正在审核中")
	ErrEmailExists          = errors.New("邮箱已被注册")
)

// 资源不存在
var (
	ErrOrderNotFound        = errors.New("订单不存在")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrNoActiveSubscription = errors.New("没有生效中的订阅")
	ErrNoActiveAPIKey       = errors.New("没有可用的 API Key，请完成付款并等待审核")
	ErrDetectionNotFound    = errors.New("识别记录不存在")
)

// 认证与权限
var (
	ErrInvalidAPIKey      = errors.New("API Key 无效或已过期")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrCannotDemoteSelf   = errors.New("不能取消自己的管理员权限")
)
