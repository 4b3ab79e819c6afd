package services

import (
	"context"
	"sync"

	"document-search-platform/internal/logger"
	"document-search-platform/models"
)

// BatchIndexer re-runs extraction, embedding and the metadata write for
// every object in the store. Documents are independent, so the work runs on
// a bounded worker pool; one document's failure never blocks the others.
type BatchIndexer struct {
	pipeline *IngestionPipeline
	objects  ObjectStore
	workers  int
}

// BatchReport summarizes one reindex run.
type BatchReport struct {
	Total    int            `json:"total"`
	Indexed  int            `json:"indexed"`
	Degraded int            `json:"degraded"`
	Failed   int            `json:"failed"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func NewBatchIndexer(pipeline *IngestionPipeline, objects ObjectStore, workers int) *BatchIndexer {
	if workers <= 0 {
		workers = 2
	}
	return &BatchIndexer{
		pipeline: pipeline,
		objects:  objects,
		workers:  workers,
	}
}

// Reindex lists the bucket and pushes every key through IndexStored.
// Cancelling ctx stops scheduling new documents; documents already picked up
// by a worker run to completion on a detached context so nothing is left
// half-written.
func (b *BatchIndexer) Reindex(ctx context.Context) (*BatchReport, error) {
	keys, err := b.objects.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{Total: len(keys), Errors: make(map[string]string)}
	if len(keys) == 0 {
		return report, nil
	}

	logger.Info("Starting batch reindex", "documents", len(keys), "workers", b.workers)

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// In-flight ingestions must survive a batch cancel.
	workCtx := context.WithoutCancel(ctx)

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for key := range jobs {
				logger.Debug("Reindexing document", "worker", workerID, "document_id", key)
				result, err := b.pipeline.IndexStored(workCtx, key)

				mu.Lock()
				switch {
				case err != nil:
					report.Failed++
					report.Errors[key] = err.Error()
				case result.Degraded():
					report.Degraded++
				default:
					report.Indexed++
				}
				mu.Unlock()
			}
		}(i)
	}

	cancelled := false
feed:
	for _, key := range keys {
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- key:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		logger.Warn("Batch reindex cancelled",
			"scheduled", report.Indexed+report.Degraded+report.Failed,
			"total", report.Total,
		)
		return report, models.WrapError(models.KindTransient, "reindex", "", ctx.Err())
	}

	logger.Info("Batch reindex finished",
		"indexed", report.Indexed,
		"degraded", report.Degraded,
		"failed", report.Failed,
	)
	return report, nil
}
