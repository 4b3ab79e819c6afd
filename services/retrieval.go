package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"document-search-platform/internal/logger"
	"document-search-platform/internal/telemetry"
	"document-search-platform/models"
)

// RetrievalService answers the two query paths over the indexed corpus:
// metadata substring search and semantic nearest-neighbor search. Both are
// stateless single-shot calls sharing the SearchResult shape. An empty
// result list is not an error; callers distinguish "zero matches" from a
// failed query by the returned error.
type RetrievalService struct {
	objects    ObjectStore
	metadata   MetadataStore
	vectors    VectorIndex
	embedder   Embedder
	presignTTL time.Duration
	retry      retryPolicy
	metrics    *telemetry.Metrics
}

// RetrievalOptions tune access-handle validity and store retry behaviour.
type RetrievalOptions struct {
	PresignTTL       time.Duration
	StoreRetries     int
	RetryBackoffBase time.Duration
}

func NewRetrievalService(
	objects ObjectStore,
	metadata MetadataStore,
	vectors VectorIndex,
	embedder Embedder,
	opts RetrievalOptions,
	metrics *telemetry.Metrics,
) *RetrievalService {
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RetrievalService{
		objects:    objects,
		metadata:   metadata,
		vectors:    vectors,
		embedder:   embedder,
		presignTTL: ttl,
		retry:      newRetryPolicy(opts.StoreRetries, opts.RetryBackoffBase),
		metrics:    metrics,
	}
}

// SearchByField scans the metadata store for records whose field value
// contains query as a substring. Matching is case-insensitive by
// construction: both the stored values and the query are lower-cased. An
// empty query matches every record. Every match comes back with a fresh
// time-bounded access URL.
func (s *RetrievalService) SearchByField(ctx context.Context, field, query string) ([]models.SearchResult, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if field != models.FieldTitle && field != models.FieldTags {
		return nil, models.WrapError(models.KindInvalidArgument, "search", "",
			fmt.Errorf("unknown search field %q, want title or tags", field))
	}
	query = strings.ToLower(query)

	var records []models.MetadataRecord
	err := s.retry.do(ctx, s.metrics, "mongo", "scan", func() error {
		var scanErr error
		records, scanErr = s.metadata.Scan(ctx, field, query)
		return scanErr
	})
	if err != nil {
		s.recordSearch("metadata", false)
		return nil, models.WrapError(models.KindSearch, "search", "", err)
	}

	results := make([]models.SearchResult, 0, len(records))
	for _, record := range records {
		url, err := s.presign(ctx, record.BucketRef)
		if err != nil {
			// A store-level failure fails the whole call rather than
			// returning a partial list.
			s.recordSearch("metadata", false)
			return nil, models.WrapError(models.KindSearch, "search", record.ID, err)
		}
		results = append(results, models.SearchResult{
			ID:              record.ID,
			Title:           record.Title,
			Tags:            record.Tags,
			UploadTimestamp: record.UploadTimestamp,
			AccessURL:       url,
		})
	}

	s.recordSearch("metadata", true)
	return results, nil
}

// SearchBySimilarity embeds the query and returns up to k nearest documents
// ordered by non-increasing similarity score. A hit whose metadata record is
// missing (partial-ingestion artifact) is dropped and counted, never
// returned with null fields.
func (s *RetrievalService) SearchBySimilarity(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, models.WrapError(models.KindInvalidArgument, "search", "",
			fmt.Errorf("k must be a positive integer, got %d", k))
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.recordSearch("semantic", false)
		return nil, models.WrapError(models.KindSearch, "search", "", err)
	}

	var hits []VectorHit
	err = s.retry.do(ctx, s.metrics, "qdrant", "query", func() error {
		var queryErr error
		hits, queryErr = s.vectors.Query(ctx, vector, k)
		return queryErr
	})
	if err != nil {
		s.recordSearch("semantic", false)
		return nil, models.WrapError(models.KindSearch, "search", "", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		var record *models.MetadataRecord
		err := s.retry.do(ctx, s.metrics, "mongo", "get", func() error {
			var getErr error
			record, getErr = s.metadata.Get(ctx, hit.ID)
			return getErr
		})
		if err != nil {
			s.recordSearch("semantic", false)
			return nil, models.WrapError(models.KindSearch, "search", hit.ID, err)
		}
		if record == nil {
			// Metadata/vector inconsistency shows up as reduced recall,
			// observable through the counter, never as a malformed result.
			if s.metrics != nil {
				s.metrics.RecordInconsistentHit(hit.ID)
			}
			logger.Warn("Dropping semantic hit without metadata record", "document_id", hit.ID)
			continue
		}

		url, err := s.presign(ctx, record.BucketRef)
		if err != nil {
			s.recordSearch("semantic", false)
			return nil, models.WrapError(models.KindSearch, "search", hit.ID, err)
		}
		results = append(results, models.SearchResult{
			ID:              record.ID,
			Title:           record.Title,
			Tags:            record.Tags,
			UploadTimestamp: record.UploadTimestamp,
			AccessURL:       url,
			Score:           hit.Score,
		})
	}

	s.recordSearch("semantic", true)
	return results, nil
}

// FetchDocument returns the metadata record and a fresh access URL for one
// id, or nil when the id is unknown.
func (s *RetrievalService) FetchDocument(ctx context.Context, id string) (*models.SearchResult, error) {
	var record *models.MetadataRecord
	err := s.retry.do(ctx, s.metrics, "mongo", "get", func() error {
		var getErr error
		record, getErr = s.metadata.Get(ctx, id)
		return getErr
	})
	if err != nil {
		return nil, models.WrapError(models.KindSearch, "fetch", id, err)
	}
	if record == nil {
		return nil, nil
	}

	url, err := s.presign(ctx, record.BucketRef)
	if err != nil {
		return nil, models.WrapError(models.KindSearch, "fetch", id, err)
	}
	return &models.SearchResult{
		ID:              record.ID,
		Title:           record.Title,
		Tags:            record.Tags,
		UploadTimestamp: record.UploadTimestamp,
		AccessURL:       url,
	}, nil
}

func (s *RetrievalService) presign(ctx context.Context, bucketRef string) (string, error) {
	var url string
	err := s.retry.do(ctx, s.metrics, "s3", "presign", func() error {
		var presignErr error
		url, presignErr = s.objects.Presign(ctx, bucketRef, s.presignTTL)
		return presignErr
	})
	return url, err
}

func (s *RetrievalService) recordSearch(mode string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordSearch(mode, success)
	}
}
