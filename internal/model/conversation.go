package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationCollection 对话集合名称
const ConversationCollection = "conversation_info"

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// Conversation 对话实体
// 使用 UUID 作为 _id，messages 只追加不修改
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Params    Params    `bson:"params" json:"params"`
	Tokens    int       `bson:"tokens" json:"tokens"`
	Messages  []Message `bson:"messages" json:"messages,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 实现 mongodb.Model
func (c *Conversation) Collection() string {
	return ConversationCollection
}

// EnsureIndexes 实现 mongodb.Model
func (c *Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_created"),
		},
		{
			Keys:    bson.D{bson.E{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_updated"),
		},
	}
	_, err := db.Collection(c.Collection()).Indexes().CreateMany(ctx, indexes)
	return err
}

// Message 消息
type Message struct {
	Role       Role        `bson:"role" json:"role"`
	Content    string      `bson:"content" json:"content"`
	Timestamp  time.Time   `bson:"timestamp" json:"timestamp"`
	TokenUsage *TokenUsage `bson:"token_usage,omitempty" json:"token_usage,omitempty"`
}

// TokenUsage Token 使用统计
type TokenUsage struct {
	PromptTokens     int `bson:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int `bson:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int `bson:"total_tokens" json:"total_tokens"`
}
