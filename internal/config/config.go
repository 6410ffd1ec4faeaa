package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"llmapp/internal/model"
)

// Config 应用配置根结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	AI           AIConfig           `mapstructure:"ai"`
	Log          LogConfig          `mapstructure:"log"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Store        StoreConfig        `mapstructure:"store"`
	Conversation ConversationConfig `mapstructure:"conversation"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature      float64 `mapstructure:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	TopP             float64 `mapstructure:"top_p"`
	FrequencyPenalty float64 `mapstructure:"frequency_penalty"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
// URI 为空时由 User/Password/Host 拼接
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Host        string `mapstructure:"host"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// ConnectionURI 返回连接串
func (c *MongoConfig) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}
	host := c.Host
	if host == "" {
		host = "localhost:27017"
	}
	if c.User == "" {
		return "mongodb://" + host
	}
	userInfo := url.UserPassword(c.User, c.Password)
	return fmt.Sprintf("mongodb://%s@%s", userInfo.String(), host)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StoreConfig 对话存储配置
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // mongo, memory
}

// ConversationConfig 对话默认参数
type ConversationConfig struct {
	DefaultTokens           int     `mapstructure:"default_tokens"`
	SystemPrompt            string  `mapstructure:"system_prompt"`
	DefaultModel            string  `mapstructure:"default_model"`
	DefaultMaxTokens        int     `mapstructure:"default_max_tokens"`
	DefaultTemperature      float64 `mapstructure:"default_temperature"`
	DefaultTopP             float64 `mapstructure:"default_top_p"`
	DefaultFrequencyPenalty float64 `mapstructure:"default_frequency_penalty"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	switch c.Store.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("invalid store driver %q, must be mongo/memory", c.Store.Driver)
	}

	if c.Conversation.DefaultTokens <= 0 {
		return errors.New("conversation.default_tokens must be positive")
	}
	if c.Conversation.DefaultMaxTokens <= 0 {
		return errors.New("conversation.default_max_tokens must be positive")
	}
	// 与对话参数使用同一套取值范围
	defaults := model.Params{
		model.ParamTemperature:      c.Conversation.DefaultTemperature,
		model.ParamTopP:             c.Conversation.DefaultTopP,
		model.ParamFrequencyPenalty: c.Conversation.DefaultFrequencyPenalty,
	}
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("invalid conversation defaults: %w", err)
	}

	return nil
}
