package services

import (
	"context"
	"time"

	"document-search-platform/models"
)

// Capability interfaces for the three backing stores and the two pluggable
// model stages. Concrete clients (S3, MongoDB, Qdrant, Gemini, the file
// extractors) satisfy these so the pipeline and retrieval service never
// depend on a specific backend, and tests can substitute fakes per
// capability.

// ObjectStore is key-addressed blob storage with time-bounded signed-URL
// issuance. Put attaches user metadata to the stored object so a bucket
// listing alone is enough to rebuild the index.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, map[string]string, error)
	List(ctx context.Context) ([]string, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MetadataStore persists structured records keyed by document id and
// supports substring scans over a named field.
type MetadataStore interface {
	Put(ctx context.Context, record models.MetadataRecord) error
	Get(ctx context.Context, id string) (*models.MetadataRecord, error)
	// Scan returns every record whose field value contains substring.
	// Both sides are stored lower-cased, so matching is case-insensitive
	// by construction. An empty substring matches every record.
	Scan(ctx context.Context, field, substring string) ([]models.MetadataRecord, error)
}

// VectorHit is one nearest-neighbor match from the vector index.
type VectorHit struct {
	ID      string
	Score   float64
	Payload models.VectorPayload
}

// VectorIndex stores fixed-dimension embeddings keyed by document id and
// answers nearest-neighbor queries under cosine distance. The dimension is
// fixed per index instance; a mismatch is a configuration error surfaced at
// startup, never per document.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, payload models.VectorPayload) error
	Query(ctx context.Context, vector []float32, k int) ([]VectorHit, error)
}

// Embedder converts free text into a fixed-dimension vector.
type Embedder interface {
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextExtractor turns raw document bytes into plain text. Implementations
// are format-specific; failures are deterministic on the same bytes and are
// never retried.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// IdentifierGenerator mints document ids. Generation is stateless, never
// fails, and each call is independent - ids are never derived from
// user-supplied text.
type IdentifierGenerator interface {
	NewID() string
}
