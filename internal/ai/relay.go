package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"llmapp/internal/ai/component"
	"llmapp/internal/config"
	"llmapp/internal/model"
)

// ErrRelayFailed 调用 LLM 失败 (网络、鉴权、限流、响应异常统一归为此类)
var ErrRelayFailed = errors.New("llm relay failed")

// DefaultSystemPrompt 默认系统指令
const DefaultSystemPrompt = "You are a helpful assistant."

// ModelFactory 按配置创建 ChatModel
type ModelFactory func(ctx context.Context, cfg *config.AIConfig) (einomodel.BaseChatModel, error)

// CompleteRequest 单次补全请求
// History 只包含之前的消息，不含本次 Prompt
type CompleteRequest struct {
	Prompt  model.Message
	History []model.Message
	Params  model.Params
}

// CompleteResponse 补全结果
type CompleteResponse struct {
	Content string
	Model   string
	Usage   *model.TokenUsage
}

// Relay 将 prompt 与历史转发给 LLM，返回首个回复
// 每次调用只请求一次，不重试
type Relay struct {
	cfg          config.AIConfig
	systemPrompt string
	defaults     model.ChatOptions
	newModel     ModelFactory
}

// Option Relay 选项
type Option func(*Relay)

// WithModelFactory 替换 ChatModel 创建方式
func WithModelFactory(f ModelFactory) Option {
	return func(r *Relay) {
		r.newModel = f
	}
}

// NewRelay 创建 Relay
func NewRelay(aiCfg *config.AIConfig, convCfg *config.ConversationConfig, opts ...Option) *Relay {
	r := &Relay{
		cfg:          *aiCfg,
		systemPrompt: DefaultSystemPrompt,
		defaults:     model.DefaultChatOptions,
		newModel:     component.NewChatModel,
	}

	// 模型优先级: 对话参数 > conversation.default_model > ai.model
	if aiCfg.Model != "" {
		r.defaults.Model = aiCfg.Model
	}
	if convCfg != nil {
		if convCfg.SystemPrompt != "" {
			r.systemPrompt = convCfg.SystemPrompt
		}
		if convCfg.DefaultModel != "" {
			r.defaults.Model = convCfg.DefaultModel
		}
		if convCfg.DefaultMaxTokens > 0 {
			r.defaults.MaxTokens = convCfg.DefaultMaxTokens
		}
		r.defaults.Temperature = convCfg.DefaultTemperature
		r.defaults.TopP = convCfg.DefaultTopP
		r.defaults.FrequencyPenalty = convCfg.DefaultFrequencyPenalty
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete 执行一次补全
func (r *Relay) Complete(ctx context.Context, req *CompleteRequest) (*CompleteResponse, error) {
	opts, err := req.Params.Resolve(r.defaults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}

	cfg := r.cfg
	cfg.Model = opts.Model
	cfg.Options = config.AIOptionsConfig{
		Temperature:      opts.Temperature,
		MaxTokens:        opts.MaxTokens,
		TopP:             opts.TopP,
		FrequencyPenalty: opts.FrequencyPenalty,
	}

	chatModel, err := r.newModel(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", ErrRelayFailed, err)
	}

	messages := r.buildMessages(req)

	log.Debug().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Int("history", len(req.History)).
		Msg("relaying prompt to llm")

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrRelayFailed)
	}

	out := &CompleteResponse{
		Content: resp.Content,
		Model:   cfg.Model,
	}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := resp.ResponseMeta.Usage
		out.Usage = &model.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

// buildMessages 系统指令 + 历史 + 本次 prompt
func (r *Relay) buildMessages(req *CompleteRequest) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.History)+2)
	messages = append(messages, schema.SystemMessage(r.systemPrompt))
	for _, m := range req.History {
		messages = append(messages, toSchemaMessage(m))
	}
	return append(messages, toSchemaMessage(req.Prompt))
}

// toSchemaMessage function 角色没有对应的 tool_call_id，作为带 name 的 user 消息发送
func toSchemaMessage(m model.Message) *schema.Message {
	switch m.Role {
	case model.RoleSystem:
		return schema.SystemMessage(m.Content)
	case model.RoleAssistant:
		return schema.AssistantMessage(m.Content, nil)
	case model.RoleFunction:
		return &schema.Message{Role: schema.User, Name: string(model.RoleFunction), Content: m.Content}
	default:
		return schema.UserMessage(m.Content)
	}
}
