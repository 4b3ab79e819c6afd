package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"document-search-platform/internal/logger"
	"document-search-platform/models"
	"document-search-platform/services"
)

const (
	TaskIndexDocument = "document:index"
	TaskReindexAll    = "index:rebuild"
)

type IndexDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

// NewIndexDocumentTask defers steps 3-5 of ingestion for an object already
// written to the store.
func NewIndexDocumentTask(documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IndexDocumentPayload{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIndexDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// NewReindexTask rebuilds the whole index from the bucket listing.
func NewReindexTask() (*asynq.Task, error) {
	return asynq.NewTask(
		TaskReindexAll,
		nil,
		asynq.MaxRetry(1),
		asynq.Timeout(time.Hour),
		asynq.Queue("low"),
	), nil
}

// TaskProcessor handles queue tasks against the ingestion pipeline.
type TaskProcessor struct {
	pipeline *services.IngestionPipeline
	batch    *services.BatchIndexer
}

func NewTaskProcessor(pipeline *services.IngestionPipeline, batch *services.BatchIndexer) *TaskProcessor {
	return &TaskProcessor{
		pipeline: pipeline,
		batch:    batch,
	}
}

func (p *TaskProcessor) HandleIndexDocument(ctx context.Context, t *asynq.Task) error {
	var payload IndexDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Indexing staged document", "document_id", payload.DocumentID)

	report, err := p.pipeline.IndexStored(ctx, payload.DocumentID)
	if err != nil {
		// Extraction failures are deterministic; requeueing cannot help.
		if models.IsKind(err, models.KindExtraction) || models.IsKind(err, models.KindCredential) {
			return fmt.Errorf("indexing %s failed permanently: %v: %w", payload.DocumentID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("indexing %s failed: %w", payload.DocumentID, err)
	}

	if report.Degraded() {
		logger.Warn("Staged document indexed in degraded state",
			"document_id", payload.DocumentID,
			"failed_steps", report.FailedSteps,
		)
	}
	return nil
}

func (p *TaskProcessor) HandleReindex(ctx context.Context, t *asynq.Task) error {
	report, err := p.batch.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	logger.Info("Reindex task finished",
		"indexed", report.Indexed,
		"degraded", report.Degraded,
		"failed", report.Failed,
	)
	return nil
}
