package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"llmapp/internal/config"
	"llmapp/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "llmapp",
	Short: "llmapp - conversation backend for LLM chat",
	Long: `llmapp stores named conversations in MongoDB and relays user prompts
to an LLM provider, appending each prompt and reply to the conversation history.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if err := loadConfig(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func loadConfig() error {
	// .env 仅用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.llmapp")
	}

	viper.SetEnvPrefix("LLMAPP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindLegacyEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	return nil
}

// bindLegacyEnv 兼容 docker-compose 中的 Mongo 初始化变量和 OPENAI_API_KEY
func bindLegacyEnv() {
	_ = viper.BindEnv("mongo.user", "LLMAPP_MONGO_USER", "MONGO_INITDB_ROOT_USERNAME")
	_ = viper.BindEnv("mongo.password", "LLMAPP_MONGO_PASSWORD", "MONGO_INITDB_ROOT_PASSWORD")
	_ = viper.BindEnv("mongo.database", "LLMAPP_MONGO_DATABASE", "MONGO_INITDB_DATABASE")
	_ = viper.BindEnv("ai.api_key", "LLMAPP_AI_API_KEY", "OPENAI_API_KEY")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")

	// AI
	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.model", "gpt-3.5-turbo")
	viper.SetDefault("ai.timeout", "60s")

	// Conversation
	viper.SetDefault("conversation.default_tokens", 4096)
	viper.SetDefault("conversation.system_prompt", "You are a helpful assistant.")
	viper.SetDefault("conversation.default_max_tokens", 100)
	viper.SetDefault("conversation.default_temperature", 0.7)
	viper.SetDefault("conversation.default_top_p", 1.0)
	viper.SetDefault("conversation.default_frequency_penalty", 0.0)

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// Store
	viper.SetDefault("store.driver", "mongo")

	// MongoDB
	viper.SetDefault("mongo.uri", "")
	viper.SetDefault("mongo.host", "mongodb:27017")
	viper.SetDefault("mongo.database", "llmapp")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 0)

	// Redis (为空时不启用缓存)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "30m")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
