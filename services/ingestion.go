package services

import (
	"context"
	"strings"
	"time"

	"document-search-platform/internal/logger"
	"document-search-platform/internal/telemetry"
	"document-search-platform/models"
)

// Object user-metadata keys attached to every stored document, mirroring
// what the uploader records so a bucket listing alone can rebuild the index.
const (
	metaKeyTitle     = "title"
	metaKeyTags      = "tags"
	metaKeyTimestamp = "upload-timestamp"
)

// IngestionOptions tune the pipeline's failure behaviour.
type IngestionOptions struct {
	// StrictExtraction turns an extraction failure into total ingestion
	// failure instead of a metadata-only document.
	StrictExtraction bool
	// StoreRetries bounds retry attempts against each backing store.
	StoreRetries int
	// RetryBackoffBase is the first retry delay; later delays double.
	RetryBackoffBase time.Duration
}

// IngestionPipeline coordinates one document's path through the three
// backing stores. Step ordering is a correctness requirement: the object
// write comes first because every later step can be retried or skipped,
// whereas a metadata or vector entry pointing at a missing object cannot.
type IngestionPipeline struct {
	ids       IdentifierGenerator
	objects   ObjectStore
	metadata  MetadataStore
	vectors   VectorIndex
	embedder  Embedder
	extractor TextExtractor
	opts      IngestionOptions
	retry     retryPolicy
	metrics   *telemetry.Metrics
}

func NewIngestionPipeline(
	ids IdentifierGenerator,
	objects ObjectStore,
	metadata MetadataStore,
	vectors VectorIndex,
	embedder Embedder,
	extractor TextExtractor,
	opts IngestionOptions,
	metrics *telemetry.Metrics,
) *IngestionPipeline {
	return &IngestionPipeline{
		ids:       ids,
		objects:   objects,
		metadata:  metadata,
		vectors:   vectors,
		embedder:  embedder,
		extractor: extractor,
		opts:      opts,
		retry:     newRetryPolicy(opts.StoreRetries, opts.RetryBackoffBase),
		metrics:   metrics,
	}
}

// Ingest runs the full pipeline for one document: mint id, store the raw
// bytes, extract text, embed and upsert the vector, then write the metadata
// record. The report always says exactly which steps succeeded; a non-nil
// error means the document is not metadata-searchable. Calling Ingest twice
// with identical bytes mints two independent documents.
func (p *IngestionPipeline) Ingest(ctx context.Context, raw []byte, title, tags string) (*models.IngestReport, error) {
	start := time.Now()

	id := p.ids.NewID()
	uploadedAt := time.Now().UTC().Truncate(time.Second)

	// Lower-casing is enforced here so every downstream search path sees
	// normalized values regardless of caller discipline.
	title = strings.ToLower(strings.TrimSpace(title))
	tags = strings.ToLower(strings.TrimSpace(tags))

	report := &models.IngestReport{
		DocumentID:      id,
		UploadTimestamp: uploadedAt,
	}

	err := p.putObject(ctx, id, raw, title, tags, uploadedAt)
	if err != nil {
		// Abort before any metadata or vector state exists.
		report.FailedSteps = append(report.FailedSteps, models.StepObjectWrite)
		p.record(start, report)
		logger.Error("Object write failed, aborting ingestion", "document_id", id, "error", err)
		return report, err
	}
	report.ObjectStored = true

	err = p.index(ctx, id, raw, title, tags, uploadedAt, report)
	p.record(start, report)
	return report, err
}

// Stage mints an id and writes only the raw object, leaving the index work
// to a later IndexStored call. Used for uploads too large to process inline;
// the ordering guarantee holds because the object exists before anything
// references it.
func (p *IngestionPipeline) Stage(ctx context.Context, raw []byte, title, tags string) (string, error) {
	id := p.ids.NewID()
	uploadedAt := time.Now().UTC().Truncate(time.Second)
	title = strings.ToLower(strings.TrimSpace(title))
	tags = strings.ToLower(strings.TrimSpace(tags))

	if err := p.putObject(ctx, id, raw, title, tags, uploadedAt); err != nil {
		logger.Error("Object write failed, nothing staged", "document_id", id, "error", err)
		return "", err
	}
	return id, nil
}

func (p *IngestionPipeline) putObject(ctx context.Context, id string, raw []byte, title, tags string, uploadedAt time.Time) error {
	objectMeta := map[string]string{
		metaKeyTitle:     title,
		metaKeyTags:      tags,
		metaKeyTimestamp: uploadedAt.Format(time.RFC3339),
	}
	return p.retry.do(ctx, p.metrics, "s3", "put", func() error {
		return p.objects.Put(ctx, id, raw, objectMeta)
	})
}

// IndexStored resumes the pipeline for an object already in the store,
// reading title/tags/timestamp back from the object's user metadata. Used by
// the queue worker for deferred uploads and by batch reindexing.
func (p *IngestionPipeline) IndexStored(ctx context.Context, id string) (*models.IngestReport, error) {
	start := time.Now()

	var raw []byte
	var objectMeta map[string]string
	err := p.retry.do(ctx, p.metrics, "s3", "get", func() error {
		var getErr error
		raw, objectMeta, getErr = p.objects.Get(ctx, id)
		return getErr
	})
	if err != nil {
		logger.Error("Failed to fetch stored object", "document_id", id, "error", err)
		return &models.IngestReport{DocumentID: id}, err
	}

	title := objectMeta[metaKeyTitle]
	tags := objectMeta[metaKeyTags]
	uploadedAt, tsErr := time.Parse(time.RFC3339, objectMeta[metaKeyTimestamp])
	if tsErr != nil {
		uploadedAt = time.Now().UTC().Truncate(time.Second)
	}

	report := &models.IngestReport{
		DocumentID:      id,
		UploadTimestamp: uploadedAt,
		ObjectStored:    true,
	}
	err = p.index(ctx, id, raw, title, tags, uploadedAt, report)
	p.record(start, report)
	return report, err
}

// index runs steps 3-5: extract, embed + vector upsert, metadata write. The
// metadata write is attempted even when the vector path failed, so metadata
// search stays usable independent of vector-index health.
func (p *IngestionPipeline) index(ctx context.Context, id string, raw []byte, title, tags string, uploadedAt time.Time, report *models.IngestReport) error {
	text, err := p.extractor.Extract(ctx, raw)
	if err != nil {
		report.FailedSteps = append(report.FailedSteps, models.StepExtraction)
		if p.opts.StrictExtraction {
			logger.Error("Extraction failed under strict mode", "document_id", id, "error", err)
			return models.WrapError(models.KindExtraction, models.StepExtraction, id, err)
		}
		logger.Warn("Extraction failed, continuing with metadata-only ingestion", "document_id", id, "error", err)
	} else {
		report.TextExtracted = true
	}

	if report.TextExtracted {
		if err := p.upsertVector(ctx, id, text, title, tags); err != nil {
			report.FailedSteps = append(report.FailedSteps, models.StepVectorWrite)
			logger.Warn("Vector write failed, document will be metadata-only", "document_id", id, "error", err)
		} else {
			report.VectorStored = true
		}
	}

	record := models.MetadataRecord{
		ID:              id,
		Title:           title,
		Tags:            tags,
		UploadTimestamp: uploadedAt,
		BucketRef:       id,
	}
	err = p.retry.do(ctx, p.metrics, "mongo", "put", func() error {
		return p.metadata.Put(ctx, record)
	})
	if err != nil {
		report.FailedSteps = append(report.FailedSteps, models.StepMetadataWrite)
		logger.Error("Metadata write failed", "document_id", id, "error", err)
		return err
	}
	report.MetadataStored = true

	logger.Info("Document ingested",
		"document_id", id,
		"vector_stored", report.VectorStored,
		"failed_steps", report.FailedSteps,
	)
	return nil
}

func (p *IngestionPipeline) upsertVector(ctx context.Context, id, text, title, tags string) error {
	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return models.WrapError(models.KindEmbedding, models.StepVectorWrite, id, err)
	}
	payload := models.VectorPayload{Content: text, Title: title, Tags: tags}
	return p.retry.do(ctx, p.metrics, "qdrant", "upsert", func() error {
		return p.vectors.Upsert(ctx, id, vector, payload)
	})
}

func (p *IngestionPipeline) record(start time.Time, report *models.IngestReport) {
	if p.metrics != nil {
		p.metrics.RecordIngest(time.Since(start).Seconds(), report.Complete(), report.Degraded())
	}
}
