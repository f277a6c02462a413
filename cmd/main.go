package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ceprud-chatbot/internal/agent"
	"ceprud-chatbot/internal/config"
	"ceprud-chatbot/internal/llm"
	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/internal/lti"
	"ceprud-chatbot/internal/ratelimit"
	"ceprud-chatbot/internal/session"
	"ceprud-chatbot/internal/telemetry"
	"ceprud-chatbot/middleware"
	"ceprud-chatbot/routes"
	"ceprud-chatbot/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("chatbot")
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	checkpoints, err := agent.NewCheckpointStore(cfg.CheckpointDBPath)
	if err != nil {
		log.Fatal("Failed to open checkpoint store:", err)
	}
	defer checkpoints.Close()

	ragClient := services.NewRAGClient(cfg.RAGServiceURL)
	userClient := services.NewUserClient(cfg.UserServiceURL)
	logClient := services.NewLogClient(cfg.LoggingServiceURL)

	toolbox := agent.NewToolbox(ragClient, ragClient, 4)
	baseLLM := llm.NewClient("generation", cfg.GenerationURL, cfg.GenerationModel)
	baseAgent := agent.New(baseLLM, toolbox, checkpoints)

	var loraAgent routes.ChatAgent
	if cfg.LoraGenerationURL != "" {
		loraLLM := llm.NewClient("generation-lora", cfg.LoraGenerationURL, cfg.LoraGenerationModel)
		loraAgent = agent.New(loraLLM, toolbox, checkpoints)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(otelgin.Middleware("chatbot"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Session-Token"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	routes.SetupChatRoutes(router, cfg, &routes.ChatDeps{
		Limiter:   ratelimit.NewLimiter(cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second),
		Tracker:   session.NewTracker(time.Duration(cfg.SessionTimeoutMinutes) * time.Minute),
		Agent:     baseAgent,
		LoraAgent: loraAgent,
		BaseLLM:   baseLLM,
		Logs:      logClient,
	})
	routes.SetupUserProxyRoutes(router, userClient)

	if err := cfg.ValidateLTI(); err != nil {
		logger.Warn("LTI launch disabled", "reason", err.Error())
	} else {
		toolKey, err := lti.LoadOrCreateToolKey(cfg.LTIConfigDir)
		if err != nil {
			log.Fatal("Failed to load LTI keypair:", err)
		}
		var nonces lti.NonceStore
		if cfg.RedisURL != "" {
			redisClient := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisURL,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			nonces = lti.NewRedisNonceStore(redisClient)
		}
		routes.SetupLTIRoutes(router, cfg, &routes.LTIDeps{
			Validator: lti.NewValidator(cfg.MoodleIssuer, cfg.MoodleClientID, cfg.MoodleJWKSURL, nonces),
			States:    lti.NewStateStore(),
			Sessions:  lti.NewSessionManager(mongoClient.Database(cfg.DBName)),
			ToolKey:   toolKey,
			Users:     userClient,
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("chatbot service starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down chatbot service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	logger.Info("chatbot service exited")
}
