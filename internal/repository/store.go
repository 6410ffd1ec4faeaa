package repository

import (
	"context"
	"errors"

	"llmapp/internal/model"
)

var (
	// ErrNotFound 对话不存在
	ErrNotFound = errors.New("conversation not found")
	// ErrDuplicateID 对话 ID 已存在
	ErrDuplicateID = errors.New("conversation id already exists")
)

// ConversationUpdate 部分更新，nil 字段保持不变
type ConversationUpdate struct {
	Name   *string
	Params model.Params
}

// ConversationStore 对话存储
// AppendMessages 必须是原子追加，同一对话的并发追加不能丢失
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context) ([]*model.Conversation, error)
	Update(ctx context.Context, id string, update ConversationUpdate) error
	AppendMessages(ctx context.Context, id string, msgs ...model.Message) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
