package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"llmapp/internal/model"
	"llmapp/internal/repository"
)

// ConversationStore 进程内对话存储
// 所有写操作持有同一把锁，追加天然串行
type ConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*model.Conversation
	order []string
}

var _ repository.ConversationStore = (*ConversationStore)(nil)

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		convs: make(map[string]*model.Conversation),
	}
}

func (s *ConversationStore) Create(_ context.Context, conv *model.Conversation) error {
	repository.PrepareNew(conv)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.convs[conv.ID]; exists {
		return repository.ErrDuplicateID
	}

	s.convs[conv.ID] = clone(conv)
	s.order = append(s.order, conv.ID)
	return nil
}

func (s *ConversationStore) FindByID(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(conv), nil
}

func (s *ConversationStore) List(_ context.Context) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Conversation, 0, len(s.order))
	for _, id := range s.order {
		c := clone(s.convs[id])
		c.Messages = nil
		result = append(result, c)
	}
	return result, nil
}

func (s *ConversationStore) Update(_ context.Context, id string, update repository.ConversationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Name != nil {
		conv.Name = *update.Name
	}
	if update.Params != nil {
		conv.Params = maps.Clone(update.Params)
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *ConversationStore) AppendMessages(_ context.Context, id string, msgs ...model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if len(msgs) == 0 {
		return nil
	}
	conv.Messages = append(conv.Messages, msgs...)
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *ConversationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.convs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *ConversationStore) Ping(context.Context) error {
	return nil
}

func clone(conv *model.Conversation) *model.Conversation {
	c := *conv
	c.Params = maps.Clone(conv.Params)
	if c.Params == nil {
		c.Params = model.Params{}
	}
	c.Messages = slices.Clone(conv.Messages)
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}
	return &c
}
