package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"llmapp/internal/ai"
	"llmapp/internal/config"
	"llmapp/internal/handler"
	"llmapp/internal/model"
	"llmapp/internal/pkg/cache"
	"llmapp/internal/pkg/mongodb"
	"llmapp/internal/repository"
	"llmapp/internal/repository/memory"
	"llmapp/internal/server/middleware"
	"llmapp/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	mongo   *mongodb.Client
	redis   *cache.RedisCache
	convSvc *service.ConversationService
}

// New 创建服务器实例，按配置初始化存储、缓存和 LLM 转发
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	srv := &Server{cfg: cfg}

	store, err := srv.initStore(ctx)
	if err != nil {
		return nil, err
	}

	// Redis 可选，连接失败时不启用缓存
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		} else {
			srv.redis = rc
			store = repository.NewCachedConversationRepo(store, rc, cfg.Redis.TTL)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	if cfg.AI.APIKey == "" {
		log.Warn().Msg("AI API key not configured, queries will fail until it is set")
	}
	relay := ai.NewRelay(&cfg.AI, &cfg.Conversation)

	srv.convSvc = service.NewConversationService(store, relay, cfg.Conversation.DefaultTokens)
	srv.engine = newEngine(cfg.Server.Mode)
	srv.setupRoutes()

	return srv, nil
}

// NewWithService 使用现成的服务创建实例 (用于测试)
func NewWithService(cfg *config.Config, convSvc *service.ConversationService) *Server {
	srv := &Server{
		cfg:     cfg,
		engine:  newEngine(cfg.Server.Mode),
		convSvc: convSvc,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) initStore(ctx context.Context) (repository.ConversationStore, error) {
	switch s.cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("using in-memory conversation store, data is lost on restart")
		return memory.NewConversationStore(), nil
	case "mongo", "":
		client, err := mongodb.New(ctx, &s.cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		s.mongo = client
		log.Info().Str("database", s.cfg.Mongo.Database).Msg("connected to MongoDB")

		if err := mongodb.EnsureIndexes(ctx, client.Database()); err != nil {
			log.Warn().Err(err).Msg("failed to ensure indexes")
		}
		return repository.NewConversationRepo(client.Database(), model.ConversationCollection), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", s.cfg.Store.Driver)
	}
}

func newEngine(mode string) *gin.Engine {
	switch mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	return gin.New()
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler(s.convSvc)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	convHandler := handler.NewConversationHandler(s.convSvc)
	conversations := s.engine.Group("/conversations")
	{
		conversations.POST("", convHandler.Create)
		conversations.GET("", convHandler.List)
		conversations.GET("/:id", convHandler.Get)
		conversations.PUT("/:id", convHandler.Update)
		conversations.DELETE("/:id", convHandler.Delete)
	}
	s.engine.POST("/queries", convHandler.SubmitQuery)
}

// Run 启动服务器，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		s.Close(shutdownCtx)
		return err
	case err := <-errCh:
		s.Close(context.Background())
		return err
	}
}

// Close 关闭外部连接
func (s *Server) Close(ctx context.Context) {
	if s.mongo != nil {
		if err := s.mongo.Close(ctx); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
