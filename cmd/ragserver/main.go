package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ceprud-chatbot/internal/config"
	"ceprud-chatbot/internal/embed"
	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/internal/rag"
	"ceprud-chatbot/internal/telemetry"
	"ceprud-chatbot/middleware"
	"ceprud-chatbot/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("ragserver")
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	embedder := embed.NewClient(cfg.EmbeddingURL, cfg.EmbeddingModel, float64(cfg.EmbeddingRPS))
	store, err := rag.NewStore(cfg.BaseIndexPath, embedder)
	if err != nil {
		log.Fatal("Failed to open vector store:", err)
	}

	splitter := rag.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	deps := &routes.RAGDeps{
		Store:     store,
		Retriever: rag.NewRetriever(store),
		Ingestor:  rag.NewIngestor(store, splitter, cfg.IngestBatchSize),
		Guides:    rag.NewGuideStore(cfg.GuideDataPath),
		Scraper:   rag.NewGuideScraper(),
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(otelgin.Middleware("ragserver"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	routes.SetupRAGRoutes(router, cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("RAG service starting", "port", cfg.Port, "index_path", cfg.BaseIndexPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down RAG service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	logger.Info("RAG service exited")
}
