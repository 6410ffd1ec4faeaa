package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"llmapp/internal/model"
)

// Model 需要维护索引的集合模型
type Model interface {
	Collection() string
	EnsureIndexes(ctx context.Context, db *mongo.Database) error
}

// EnsureIndexes 应用启动时创建所有集合的索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return EnsureAllIndexes(ctx, db, &model.Conversation{})
}

// EnsureAllIndexes 依次为 models 创建索引
func EnsureAllIndexes(ctx context.Context, db *mongo.Database, models ...Model) error {
	for _, m := range models {
		if err := m.EnsureIndexes(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
