package dto

// DetectionRequest 计量操作：提交一张待识别的图片
type DetectionRequest struct {
	ImageURL string `json:"image_url" binding:"required,url,max=1000"`
}

// DetectionResponse 已入队的识别任务
type DetectionResponse struct {
	JobID      int64  `json:"job_id"`
	Status     string `json:"status"`
	DailyUsed  int    `json:"daily_used"`
	DailyLimit int    `json:"daily_limit"`
}

// DetectionInfo 历史记录项
type DetectionInfo struct {
	ID           int64  `json:"id"`
	ImageURL     string `json:"image_url"`
	Status       string `json:"status"`
	ObjectName   string `json:"object_name,omitempty"`
	Advice       string `json:"advice,omitempty"`
	HeatmapURL   string `json:"heatmap_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// HistoryQuery 历史记录查询，日期格式 2006-01-02，date_to 当天包含在内
type HistoryQuery struct {
	PageQuery
	Search   string `form:"search"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// BulkDeleteRequest 批量删除历史记录
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,max=100,dive,gt=0"`
}

// BulkDeleteResponse 实际删除的条数，不属于当前用户的 ID 会被忽略
type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// ObjectCount 识别对象出现次数
type ObjectCount struct {
	ObjectName string `json:"object_name"`
	Count      int64  `json:"count"`
}

// DailyCount 某一天的识别次数
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DetectionStats 用户识别统计
type DetectionStats struct {
	TotalDetections int64         `json:"total_detections"`
	MostCommon      []ObjectCount `json:"most_common"`
	Daily           []DailyCount  `json:"daily"`
}
