package model

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// CreatedResponse 创建成功响应
type CreatedResponse struct {
	ID string `json:"id"`
}

// QueryResponse 查询响应
type QueryResponse struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`
}
