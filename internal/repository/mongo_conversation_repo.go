package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"llmapp/internal/model"
	"llmapp/internal/pkg/id"
)

// ConversationRepo MongoDB 对话仓库
// 使用 UUID 字符串作为 _id
type ConversationRepo struct {
	collection *mongo.Collection
}

var _ ConversationStore = (*ConversationRepo)(nil)

// NewConversationRepo 创建对话仓库
func NewConversationRepo(db *mongo.Database, collection string) *ConversationRepo {
	if collection == "" {
		collection = model.ConversationCollection
	}
	return &ConversationRepo{
		collection: db.Collection(collection),
	}
}

// Create 创建对话，ID 为空时生成新 ID
func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	PrepareNew(conv)

	if _, err := r.collection.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// FindByID 根据 ID 查询
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

// List 按创建顺序返回全部对话 (不含消息)
func (r *ConversationRepo) List(ctx context.Context) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"messages": 0})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	convs := make([]*model.Conversation, 0)
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

// Update 更新名称和参数
func (r *ConversationRepo) Update(ctx context.Context, id string, update ConversationUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Params != nil {
		set["params"] = update.Params
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessages 原子追加消息
// $push + $each 在单文档上原子执行，并发追加不会互相覆盖
func (r *ConversationRepo) AppendMessages(ctx context.Context, id string, msgs ...model.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": msgs}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除对话
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping 检查数据库连接
func (r *ConversationRepo) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}

// PrepareNew 填充新对话的 ID、空集合和时间戳
func PrepareNew(conv *model.Conversation) {
	if conv.ID == "" {
		conv.ID = id.New()
	}
	if conv.Params == nil {
		conv.Params = model.Params{}
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
}
