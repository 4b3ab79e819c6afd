package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"document-search-platform/internal/ai"
	"document-search-platform/internal/config"
	"document-search-platform/internal/identifier"
	"document-search-platform/internal/logger"
	"document-search-platform/internal/storage"
	"document-search-platform/internal/telemetry"
	"document-search-platform/internal/vectorstore"
	"document-search-platform/middleware"
	"document-search-platform/routes"
	"document-search-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("document-search-platform")
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	ctx := context.Background()

	// Connect to MongoDB (metadata store)
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Redis backs the rate limiter and the task queue
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// S3 object store
	objects, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create S3 client:", err)
	}

	// Qdrant vector index; the collection dimension is fixed here
	vectors := vectorstore.NewQdrantIndex(vectorstore.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Dimension:  cfg.VectorDimensions,
	})
	if err := vectors.Init(ctx); err != nil {
		log.Fatal("Failed to initialize vector index:", err)
	}

	// Gemini embedder; the dimension contract is verified once at startup
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()
	if err := embedder.VerifyDimension(ctx); err != nil {
		log.Fatal("Embedding dimension check failed:", err)
	}

	metadataStore := storage.NewMongoMetadataStore(mongoClient, cfg.DBName, cfg.CollectionName)

	pipeline := services.NewIngestionPipeline(
		identifier.NewGenerator("doc"),
		objects,
		metadataStore,
		vectors,
		embedder,
		services.NewAutoExtractor(),
		services.IngestionOptions{
			StrictExtraction: cfg.StrictExtraction,
			StoreRetries:     cfg.StoreRetries,
			RetryBackoffBase: time.Duration(cfg.RetryBackoffBaseMs) * time.Millisecond,
		},
		metrics,
	)

	retrieval := services.NewRetrievalService(
		objects,
		metadataStore,
		vectors,
		embedder,
		services.RetrievalOptions{
			PresignTTL:       time.Duration(cfg.PresignTTL) * time.Second,
			StoreRetries:     cfg.StoreRetries,
			RetryBackoffBase: time.Duration(cfg.RetryBackoffBaseMs) * time.Millisecond,
		},
		metrics,
	)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(router, cfg, pipeline, retrieval, queueClient)
	routes.SetupSearchRoutes(router, retrieval)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
