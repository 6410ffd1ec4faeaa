package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"llmapp/internal/ai"
	"llmapp/internal/model"
	"llmapp/internal/repository"
)

const (
	// MaxNameLength 对话名称最大字符数
	MaxNameLength = 200
	// DefaultTokens 新对话的 token 预算
	DefaultTokens = 4096
)

// Relay LLM 转发接口，由 ai.Relay 实现
type Relay interface {
	Complete(ctx context.Context, req *ai.CompleteRequest) (*ai.CompleteResponse, error)
}

// ConversationService 对话服务 - 业务逻辑层
// 职责: 编排存储与 LLM 转发，将所有失败映射为 ErrNotFound/ErrInvalidInput/ErrAppendFailed/ErrInternal
type ConversationService struct {
	store         repository.ConversationStore
	relay         Relay
	defaultTokens int
}

// NewConversationService 创建对话服务
func NewConversationService(store repository.ConversationStore, relay Relay, defaultTokens int) *ConversationService {
	if defaultTokens <= 0 {
		defaultTokens = DefaultTokens
	}
	return &ConversationService{
		store:         store,
		relay:         relay,
		defaultTokens: defaultTokens,
	}
}

// Create 创建对话，返回新 ID
func (s *ConversationService) Create(ctx context.Context, name string, params model.Params) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := params.Validate(); err != nil {
		return "", wrap(ErrInvalidInput, err)
	}

	conv := &model.Conversation{
		Name:     name,
		Params:   params,
		Tokens:   s.defaultTokens,
		Messages: []model.Message{},
	}
	if err := s.store.Create(ctx, conv); err != nil {
		log.Error().Err(err).Msg("failed to create conversation")
		return "", wrap(ErrInternal, err)
	}

	log.Info().Str("conversation_id", conv.ID).Str("name", name).Msg("conversation created")
	return conv.ID, nil
}

// List 返回全部对话
func (s *ConversationService) List(ctx context.Context) ([]*model.Conversation, error) {
	convs, err := s.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list conversations")
		return nil, wrap(ErrInternal, err)
	}
	return convs, nil
}

// Get 获取对话
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id, "failed to get conversation")
	}
	return conv, nil
}

// Update 更新名称和/或参数，nil 表示不修改
func (s *ConversationService) Update(ctx context.Context, id string, name *string, params model.Params) error {
	if name != nil {
		if err := validateName(*name); err != nil {
			return err
		}
	}
	if err := params.Validate(); err != nil {
		return wrap(ErrInvalidInput, err)
	}

	err := s.store.Update(ctx, id, repository.ConversationUpdate{Name: name, Params: params})
	if err != nil {
		return s.storeError(err, id, "failed to update conversation")
	}
	return nil
}

// Delete 删除对话
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError(err, id, "failed to delete conversation")
	}
	log.Info().Str("conversation_id", id).Msg("conversation deleted")
	return nil
}

// SubmitQuery 发送 prompt 并把 (prompt, 回复) 作为一对消息追加到历史
// 业务流程: 1. 读取对话 -> 2. 调用 LLM -> 3. 原子追加两条消息
// LLM 失败时不写入任何消息
func (s *ConversationService) SubmitQuery(ctx context.Context, id string, prompt model.Prompt) (*model.Message, error) {
	logger := log.With().Str("conversation_id", id).Logger()

	if strings.TrimSpace(prompt.Content) == "" {
		return nil, fmt.Errorf("%w: prompt content is required", ErrInvalidInput)
	}
	role := prompt.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	conv, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id, "failed to load conversation")
	}

	userMsg := model.Message{
		Role:      role,
		Content:   prompt.Content,
		Timestamp: time.Now(),
	}

	resp, err := s.relay.Complete(ctx, &ai.CompleteRequest{
		Prompt:  userMsg,
		History: conv.Messages,
		Params:  conv.Params,
	})
	if err != nil {
		logger.Error().Err(err).Msg("llm relay failed")
		return nil, wrap(ErrInternal, err)
	}

	assistantMsg := model.Message{
		Role:       model.RoleAssistant,
		Content:    resp.Content,
		Timestamp:  time.Now(),
		TokenUsage: resp.Usage,
	}

	if err := s.store.AppendMessages(ctx, id, userMsg, assistantMsg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		logger.Error().Err(err).Msg("failed to append messages")
		return nil, wrap(ErrAppendFailed, err)
	}

	event := logger.Info().Str("model", resp.Model)
	if resp.Usage != nil {
		event = event.
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens)
	}
	event.Msg("query completed")

	return &assistantMsg, nil
}

// Ready 存储是否可用
func (s *ConversationService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ConversationService) storeError(err error, id, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrap(ErrNotFound, err)
	}
	log.Error().Err(err).Str("conversation_id", id).Msg(msg)
	return wrap(ErrInternal, err)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, MaxNameLength)
	}
	return nil
}
