package model

// CreateConversationRequest 创建对话请求
type CreateConversationRequest struct {
	Name   string `json:"name" binding:"required,max=200"`
	Params Params `json:"params,omitempty"`
}

// UpdateConversationRequest 更新对话请求
// 未提供的字段保持不变
type UpdateConversationRequest struct {
	Name   *string `json:"name,omitempty" binding:"omitempty,max=200"`
	Params Params  `json:"params,omitempty"`
}

// Prompt 用户输入
type Prompt struct {
	Role    Role   `json:"role,omitempty" binding:"omitempty,oneof=system user assistant function"`
	Content string `json:"content" binding:"required"`
}

// QueryRequest 提交查询请求
type QueryRequest struct {
	ID     string `json:"id" binding:"required"`
	Prompt Prompt `json:"prompt"`
}
