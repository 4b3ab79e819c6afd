package ai

import (
	"context"
	"fmt"
	"time"

	"document-search-platform/internal/config"
	"document-search-platform/internal/logger"
	"document-search-platform/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiEmbedder produces fixed-dimension embeddings via Google Generative
// AI (text-embedding-004 by default). Calls go through a circuit breaker and
// a rate limiter so a misbehaving upstream degrades ingestion instead of
// hammering the API.
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	dimension   int
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiEmbedder{
		client:      client,
		model:       cfg.GoogleEmbeddingsModel,
		dimension:   cfg.VectorDimensions,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(1), 10), // 60 requests per minute
	}, nil
}

// Dimension returns the configured embedding dimension D. Every entry in
// the vector index must carry exactly D values.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns the embedding vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, models.WrapError(models.KindEmbedding, "", "", err)
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		return nil, models.WrapError(models.KindEmbedding, "", "", err)
	}

	vec := result.([]float32)
	if len(vec) != e.dimension {
		// Dimension drift means the model and VECTOR_DIM disagree. That is a
		// configuration error, not a per-document one.
		return nil, fmt.Errorf("embedding dimension mismatch: model returned %d, index expects %d", len(vec), e.dimension)
	}
	return vec, nil
}

// VerifyDimension embeds a probe string and checks the configured dimension
// against what the model actually returns. Called once at startup; a
// mismatch is fatal.
func (e *GeminiEmbedder) VerifyDimension(ctx context.Context) error {
	_, err := e.Embed(ctx, "dimension probe")
	return err
}

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
