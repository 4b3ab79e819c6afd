// Package vectorstore provides the vector-index capability backed by the
// Qdrant REST API. The collection uses cosine distance; one entry per
// document, keyed by the UUID portion of the document id (Qdrant point ids
// must be integers or UUIDs), with the full document id carried in the
// payload.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"document-search-platform/models"
	"document-search-platform/services"
)

type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

func NewQdrantIndex(cfg Config) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantIndex{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init creates the collection if missing. The dimension is fixed here for
// the lifetime of the index; Upsert rejects vectors of any other length.
func (q *QdrantIndex) Init(ctx context.Context) error {
	if q.dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", q.dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 if the collection already exists with the same
	// schema; a schema conflict propagates as an error.
	return q.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body, nil)
}

// Upsert writes the embedding and payload for one document.
func (q *QdrantIndex) Upsert(ctx context.Context, id string, vector []float32, payload models.VectorPayload) error {
	if len(vector) != q.dimension {
		return fmt.Errorf("vector dimension mismatch: got %d, index expects %d", len(vector), q.dimension)
	}
	body := map[string]any{
		"points": []map[string]any{
			{
				"id":     pointID(id),
				"vector": vector,
				"payload": map[string]any{
					"document_id": id,
					"content":     payload.Content,
					"title":       payload.Title,
					"tags":        payload.Tags,
				},
			},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection)
	if err := q.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return models.WrapError(models.KindTransient, "qdrant.upsert", id, err)
	}
	return nil
}

// Query returns the k nearest entries to vector, ordered by non-increasing
// similarity score.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]services.VectorHit, error) {
	if k <= 0 {
		return nil, models.WrapError(models.KindInvalidArgument, "qdrant.query", "",
			fmt.Errorf("k must be positive, got %d", k))
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection)
	if err := q.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, models.WrapError(models.KindTransient, "qdrant.query", "", err)
	}

	hits := make([]services.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := services.VectorHit{Score: r.Score}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.ID = v
		}
		if v, ok := r.Payload["content"].(string); ok {
			hit.Payload.Content = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			hit.Payload.Title = v
		}
		if v, ok := r.Payload["tags"].(string); ok {
			hit.Payload.Tags = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// pointID strips the namespace prefix so the remaining UUID is a valid
// Qdrant point id.
func pointID(documentID string) string {
	if i := strings.Index(documentID, "-"); i >= 0 {
		return documentID[i+1:]
	}
	return documentID
}

func (q *QdrantIndex) do(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("qdrant " + method + " " + url + " failed: " + resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
