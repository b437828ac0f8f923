package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码，HTTP 状态码统一为 200
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeQuotaExceeded    = 1004
	CodeDuplicateAction  = 1005 // 重复流水号、订单已审核、审核进行中、邮箱已注册
	CodeServerError      = 5000
)

var defaultMessages = map[int]string{
	CodeParamError:       "参数错误",
	CodeAuthFailed:       "认证失败",
	CodePermissionDenied: "权限不足",
	CodeResourceNotFound: "资源不存在",
	CodeQuotaExceeded:    "今日配额已用完",
	CodeDuplicateAction:  "重复操作",
	CodeServerError:      "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页列表，page 与 page_size 为纠正后的实际取值
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

func write(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	if message == "" {
		message = defaultMessages[code]
	}
	write(c, code, message, nil)
}

func Success(c *gin.Context, data interface{}) {
	write(c, CodeSuccess, "success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, CodeSuccess, message, data)
}

// SuccessPage 分页响应，items 为 nil 时输出空数组
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	if items == nil {
		items = []struct{}{}
	}
	write(c, CodeSuccess, "success", PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// 以下错误响应在 message 为空时使用错误码的默认消息

func ParamError(c *gin.Context, message string) {
	fail(c, CodeParamError, message)
}

func AuthError(c *gin.Context, message string) {
	fail(c, CodeAuthFailed, message)
}

func PermissionError(c *gin.Context, message string) {
	fail(c, CodePermissionDenied, message)
}

func NotFoundError(c *gin.Context, message string) {
	fail(c, CodeResourceNotFound, message)
}

// QuotaError 无有效订阅或当日配额用尽
func QuotaError(c *gin.Context, message string) {
	fail(c, CodeQuotaExceeded, message)
}

func DuplicateError(c *gin.Context, message string) {
	fail(c, CodeDuplicateAction, message)
}

func ServerError(c *gin.Context, message string) {
	fail(c, CodeServerError, message)
}
