package main

import (
	"context"
	"log"

	"chatbridge/config"
	"chatbridge/internal/handler"
	"chatbridge/internal/llm"
	"chatbridge/internal/metrics"
	"chatbridge/internal/middleware"
	"chatbridge/internal/redis"
	"chatbridge/internal/repository"
	"chatbridge/internal/server"
	"chatbridge/internal/services"
	"chatbridge/pkg/database"
	"chatbridge/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.AppEnv)
	defer l.Sync()

	ctx := context.Background()

	mongo, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		l.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.Close(context.Background()); err != nil {
			l.Errorf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	if err := repository.InitSchema(ctx, mongo.DB); err != nil {
		l.Fatalf("Failed to initialise schema: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(mongo.DB)
	turnRepo := repository.NewConversationRepository(mongo.DB)

	m := metrics.New()
	completer := llm.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)

	// Services
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	userService := services.NewUserService(userRepo)
	chatService := services.NewChatService(userRepo, turnRepo, completer, m)

	// Rate limiting is optional; the interface stays nil when Redis is not configured.
	var limiter middleware.RateLimiter
	if cfg.RateLimitEnabled() {
		rdb, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			l.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		rlCfg := redis.DefaultRateLimitConfig()
		rlCfg.AuthLimit = cfg.AuthRateLimit
		rlCfg.ChatLimit = cfg.ChatRateLimit
		limiter = redis.NewRateLimiter(rdb, rlCfg)
		l.Infof("Rate limiting enabled (auth=%d/min, chat=%d/min)", rlCfg.AuthLimit, rlCfg.ChatLimit)
	}

	handlers := &server.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(userService),
		Chat:   handler.NewChatHandler(chatService),
		Health: handler.NewHealthHandler(mongo),
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, authService, m, limiter)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited: %v", err)
	}
}
