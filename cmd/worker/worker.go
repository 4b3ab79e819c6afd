package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"document-search-platform/internal/ai"
	"document-search-platform/internal/config"
	"document-search-platform/internal/identifier"
	"document-search-platform/internal/logger"
	"document-search-platform/internal/queue"
	"document-search-platform/internal/scheduler"
	"document-search-platform/internal/storage"
	"document-search-platform/internal/telemetry"
	"document-search-platform/internal/vectorstore"
	"document-search-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	ctx := context.Background()

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// S3 object store
	objects, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create S3 client:", err)
	}

	// Qdrant vector index
	vectors := vectorstore.NewQdrantIndex(vectorstore.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Dimension:  cfg.VectorDimensions,
	})
	if err := vectors.Init(ctx); err != nil {
		log.Fatal("Failed to initialize vector index:", err)
	}

	// Gemini embedder
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

	batch := services.NewBatchIndexer(pipeline, objects, cfg.IngestWorkers)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Scheduled full reindex, if configured
	if cfg.ReindexCron != "" {
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()

		sched := scheduler.NewScheduler()
		err := sched.ScheduleJob("reindex", cfg.ReindexCron, func() error {
			task, err := queue.NewReindexTask()
			if err != nil {
				return err
			}
			_, err = queueClient.Enqueue(task)
			return err
		})
		if err != nil {
			log.Fatal("Failed to schedule reindex job:", err)
		}
		sched.Start()
		defer sched.Stop()
		log.Printf("Scheduled full reindex: %s", cfg.ReindexCron)
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.IngestWorkers,
			Queues: map[string]int{
				"critical": 6, // deferred document indexing
				"default":  3,
				"low":      1, // full reindex
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(pipeline, batch)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIndexDocument, processor.HandleIndexDocument)
	mux.HandleFunc(queue.TaskReindexAll, processor.HandleReindex)

	log.Println("Starting indexing worker...")
	log.Printf("   Concurrency: %d", cfg.IngestWorkers)
	log.Printf("   Redis: %s", redisOpt.Addr)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
