package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"llmapp/internal/model"
	"llmapp/internal/pkg/cache"
)

// Cache 缓存接口，由 cache.RedisCache 实现
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedConversationRepo 为 FindByID 增加读缓存
// 任何写操作成功或失败后都会删除对应 key；缓存错误只记录日志
// 读取期间若 key 被失效，不回填 (或回填后立即删除)，避免旧文档覆盖写入结果
type CachedConversationRepo struct {
	ConversationStore
	cache Cache
	ttl   time.Duration

	mu          sync.Mutex
	seq         uint64
	reading     int
	invalidated map[string]uint64 // id -> 失效时的 seq，仅在有读取进行中时记录
}

// NewCachedConversationRepo 包装 store
func NewCachedConversationRepo(store ConversationStore, c Cache, ttl time.Duration) *CachedConversationRepo {
	if ttl <= 0 {
		ttl = cache.ConversationCacheTTL
	}
	return &CachedConversationRepo{
		ConversationStore: store,
		cache:             c,
		ttl:               ttl,
		invalidated:       make(map[string]uint64),
	}
}

// FindByID 先查缓存，未命中再查存储并回填
func (r *CachedConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	key := cache.ConversationCacheKey(id)

	var cached model.Conversation
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("conversation_id", id).Msg("conversation cache read failed")
	}

	start := r.beginRead()
	conv, err := r.ConversationStore.FindByID(ctx, id)
	if err != nil {
		r.endRead()
		return nil, err
	}

	r.fill(ctx, id, key, conv, start)
	return conv, nil
}

// fill 回填缓存；Set 前后各检查一次失效记录
// 失效发生在检查之后时，写方的 Delete 必然晚于本次 Set
func (r *CachedConversationRepo) fill(ctx context.Context, id, key string, conv *model.Conversation, start uint64) {
	defer r.endRead()

	if r.invalidatedSince(id, start) {
		return
	}
	if err := r.cache.Set(ctx, key, conv, r.ttl); err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("conversation cache write failed")
		return
	}
	if r.invalidatedSince(id, start) {
		r.invalidate(ctx, id)
	}
}

func (r *CachedConversationRepo) beginRead() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reading++
	return r.seq
}

func (r *CachedConversationRepo) endRead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reading--
	if r.reading == 0 {
		clear(r.invalidated)
	}
}

func (r *CachedConversationRepo) invalidatedSince(id string, start uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invalidated[id] > start
}

// Update 更新并失效缓存
func (r *CachedConversationRepo) Update(ctx context.Context, id string, update ConversationUpdate) error {
	defer r.invalidate(ctx, id)
	return r.ConversationStore.Update(ctx, id, update)
}

// AppendMessages 追加并失效缓存
func (r *CachedConversationRepo) AppendMessages(ctx context.Context, id string, msgs ...model.Message) error {
	defer r.invalidate(ctx, id)
	return r.ConversationStore.AppendMessages(ctx, id, msgs...)
}

// Delete 删除并失效缓存
func (r *CachedConversationRepo) Delete(ctx context.Context, id string) error {
	defer r.invalidate(ctx, id)
	return r.ConversationStore.Delete(ctx, id)
}

func (r *CachedConversationRepo) invalidate(ctx context.Context, id string) {
	r.mu.Lock()
	r.seq++
	if r.reading > 0 {
		r.invalidated[id] = r.seq
	}
	r.mu.Unlock()

	if err := r.cache.Delete(context.WithoutCancel(ctx), cache.ConversationCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("conversation cache invalidation failed")
	}
}
