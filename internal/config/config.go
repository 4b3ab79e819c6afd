package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Object store (S3)
	AWSAccessKey string
	AWSSecretKey string
	AWSRegion    string
	BucketName   string

	// Metadata store (MongoDB)
	MongoURI       string
	DBName         string
	CollectionName string

	// Vector index (Qdrant)
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	VectorDimensions int

	// Embeddings
	GeminiAPIKey          string
	GoogleEmbeddingsModel string

	// Redis (asynq queue + rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Ingestion behaviour
	StrictExtraction    bool
	PresignTTL          int // seconds
	IngestWorkers       int
	StoreRetries        int
	RetryBackoffBaseMs  int
	SyncProcessingLimit int64
	MaxFileSize         int64
	ReindexCron         string

	// HTTP server
	Port            string
	GinMode         string
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		AWSAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AWSRegion:    getEnv("AWS_REGION", "ap-south-1"),
		BucketName:   getEnv("BUCKET_NAME", "documents"),

		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017/document_search"),
		DBName:         getEnv("DB_NAME", "document_search"),
		CollectionName: getEnv("COLLECTION_NAME", "documents"),

		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "document-search"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StrictExtraction:    getEnvBool("STRICT_EXTRACTION", false),
		PresignTTL:          getEnvInt("PRESIGN_TTL", 3600),
		IngestWorkers:       getEnvInt("INGEST_WORKERS", 4),
		StoreRetries:        getEnvInt("STORE_RETRIES", 3),
		RetryBackoffBaseMs:  getEnvInt("RETRY_BACKOFF_BASE_MS", 200),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB sync processing limit
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600),        // 100MB maximum upload
		ReindexCron:         getEnv("REINDEX_CRON", ""),                     // empty disables scheduled reindex

		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		CORSOrigins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	// Validate required fields
	if cfg.AWSAccessKey == "" || cfg.AWSSecretKey == "" {
		return nil, fmt.Errorf("AWS_ACCESS_KEY and AWS_SECRET_KEY are required - set them in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.VectorDimensions <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be a positive integer, got %d", cfg.VectorDimensions)
	}

	if cfg.PresignTTL <= 0 {
		return nil, fmt.Errorf("PRESIGN_TTL must be a positive number of seconds, got %d", cfg.PresignTTL)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
