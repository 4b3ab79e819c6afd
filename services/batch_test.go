package services

import (
	"context"
	"fmt"
	"testing"
)

func stageDocs(t *testing.T, fx *pipelineFixture, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := fx.pipeline.Stage(context.Background(),
			[]byte(fmt.Sprintf("document %d", i)),
			fmt.Sprintf("title %d", i), "batch")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestReindexProcessesEveryObject(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	ids := stageDocs(t, fx, 5)

	batch := NewBatchIndexer(fx.pipeline, fx.objects, 3)
	report, err := batch.Reindex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 5 || report.Indexed != 5 {
		t.Fatalf("report = %+v, want 5/5 indexed", report)
	}
	if report.Failed != 0 || report.Degraded != 0 {
		t.Errorf("unexpected failures in %+v", report)
	}
	for _, id := range ids {
		if record, _ := fx.metadata.Get(context.Background(), id); record == nil {
			t.Errorf("document %s not indexed", id)
		}
		if _, ok := fx.vectors.entries[id]; !ok {
			t.Errorf("vector missing for %s", id)
		}
	}
}

func TestReindexEmptyBucket(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	batch := NewBatchIndexer(fx.pipeline, fx.objects, 2)

	report, err := batch.Reindex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 0 || report.Indexed != 0 {
		t.Fatalf("empty bucket report = %+v", report)
	}
}

func TestReindexIsolatesDocumentFailures(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	stageDocs(t, fx, 3)
	// One more document whose bytes the extractor refuses.
	badID, err := fx.pipeline.Stage(context.Background(), []byte("poison"), "bad", "")
	if err != nil {
		t.Fatal(err)
	}
	fx.extractor.failOn = "poison"

	batch := NewBatchIndexer(fx.pipeline, fx.objects, 2)
	report, err := batch.Reindex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 4 {
		t.Fatalf("report total = %d, want 4", report.Total)
	}
	if report.Indexed != 3 {
		t.Errorf("indexed = %d, want 3", report.Indexed)
	}
	// Lenient extraction turns the poison document into a degraded one, it
	// must not abort the batch.
	if report.Degraded != 1 {
		t.Errorf("degraded = %d, want 1, report %+v", report.Degraded, report)
	}
	if record, _ := fx.metadata.Get(context.Background(), badID); record == nil {
		t.Error("degraded document should still get its metadata record")
	}
}

func TestReindexStrictFailureCounted(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{StrictExtraction: true})
	stageDocs(t, fx, 2)
	badID, err := fx.pipeline.Stage(context.Background(), []byte("poison"), "bad", "")
	if err != nil {
		t.Fatal(err)
	}
	fx.extractor.failOn = "poison"

	batch := NewBatchIndexer(fx.pipeline, fx.objects, 2)
	report, err := batch.Reindex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}
	if _, ok := report.Errors[badID]; !ok {
		t.Errorf("errors map %v missing %s", report.Errors, badID)
	}
	if report.Indexed != 2 {
		t.Errorf("indexed = %d, want 2", report.Indexed)
	}
}

func TestReindexCancellationStopsScheduling(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	stageDocs(t, fx, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := NewBatchIndexer(fx.pipeline, fx.objects, 2)
	report, err := batch.Reindex(ctx)
	if err == nil {
		t.Fatal("cancelled reindex must return an error")
	}
	if report == nil {
		t.Fatal("cancelled reindex must still return its partial report")
	}
	processed := report.Indexed + report.Degraded + report.Failed
	if processed == report.Total {
		t.Skip("all documents raced ahead of the cancel")
	}
	if processed > report.Total {
		t.Errorf("processed %d exceeds total %d", processed, report.Total)
	}
}

func TestReindexInFlightDocumentsComplete(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	stageDocs(t, fx, 1)

	// Cancel the moment the worker picks the document up; it must still
	// finish because workers run on a detached context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.objects.getHook = cancel

	batch := NewBatchIndexer(fx.pipeline, fx.objects, 1)
	batch.Reindex(ctx)

	if fx.metadata.count() != 1 {
		t.Errorf("in-flight document not completed: %d records", fx.metadata.count())
	}
	if _, ok := fx.vectors.entries["doc-0001"]; !ok {
		t.Error("in-flight document's vector write did not complete")
	}
}
