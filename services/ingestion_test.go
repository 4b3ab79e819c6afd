package services

import (
	"context"
	"testing"
	"time"

	"document-search-platform/models"
)

func TestIngestStoresObjectMetadataAndVector(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})

	report, err := fx.pipeline.Ingest(context.Background(), []byte("quarterly numbers"), "Q3 Report", "Finance, 2024")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if !report.Complete() {
		t.Errorf("expected complete report, got %+v", report)
	}
	if report.Degraded() {
		t.Errorf("expected non-degraded report, got %+v", report)
	}
	if report.DocumentID == "" {
		t.Fatal("expected a minted document id")
	}

	obj, ok := fx.objects.objects[report.DocumentID]
	if !ok {
		t.Fatalf("object %s not stored", report.DocumentID)
	}
	if string(obj.data) != "quarterly numbers" {
		t.Errorf("stored bytes = %q", obj.data)
	}
	if obj.meta["title"] != "q3 report" {
		t.Errorf("object metadata title = %q, want lower-cased", obj.meta["title"])
	}
	if _, err := time.Parse(time.RFC3339, obj.meta["upload-timestamp"]); err != nil {
		t.Errorf("upload-timestamp not RFC3339: %q", obj.meta["upload-timestamp"])
	}

	record, err := fx.metadata.Get(context.Background(), report.DocumentID)
	if err != nil || record == nil {
		t.Fatalf("metadata record missing: %v", err)
	}
	if record.Title != "q3 report" || record.Tags != "finance, 2024" {
		t.Errorf("metadata not normalized: title=%q tags=%q", record.Title, record.Tags)
	}
	if record.BucketRef != report.DocumentID {
		t.Errorf("bucket ref %q does not match id %q", record.BucketRef, report.DocumentID)
	}

	if _, ok := fx.vectors.entries[report.DocumentID]; !ok {
		t.Errorf("vector entry missing for %s", report.DocumentID)
	}
}

func TestIngestObjectWriteFailureAborts(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	fx.objects.failPut = transientErr("bucket unavailable")

	report, err := fx.pipeline.Ingest(context.Background(), []byte("doc"), "title", "tags")
	if err == nil {
		t.Fatal("expected error when object write fails")
	}
	if report.ObjectStored {
		t.Error("report claims object stored despite failure")
	}
	if fx.metadata.count() != 0 {
		t.Errorf("metadata written after object failure: %d records", fx.metadata.count())
	}
	if fx.vectors.count() != 0 {
		t.Errorf("vector written after object failure: %d entries", fx.vectors.count())
	}
}

func TestIngestRetriesTransientObjectFailure(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{StoreRetries: 3})
	fx.objects.failPut = transientErr("throttled")
	fx.objects.failPutLeft = 2

	report, err := fx.pipeline.Ingest(context.Background(), []byte("doc"), "title", "tags")
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if !report.Complete() {
		t.Errorf("expected complete report after recovery, got %+v", report)
	}
}

func TestIngestExtractionFailureLenient(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{StrictExtraction: false})
	fx.extractor.failErr = extractionErr("encrypted pdf")

	report, err := fx.pipeline.Ingest(context.Background(), []byte("doc"), "title", "tags")
	if err != nil {
		t.Fatalf("lenient mode must not fail the ingestion: %v", err)
	}
	if !report.MetadataStored {
		t.Error("metadata must still be written when extraction fails")
	}
	if report.VectorStored || fx.vectors.count() != 0 {
		t.Error("no vector should exist without extracted text")
	}
	if !report.Degraded() {
		t.Errorf("expected degraded report, got %+v", report)
	}
	if !containsStep(report.FailedSteps, models.StepExtraction) {
		t.Errorf("failed steps %v missing extraction", report.FailedSteps)
	}
}

func TestIngestExtractionFailureStrict(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{StrictExtraction: true})
	fx.extractor.failErr = extractionErr("encrypted pdf")

	_, err := fx.pipeline.Ingest(context.Background(), []byte("doc"), "title", "tags")
	if err == nil {
		t.Fatal("strict mode must fail the ingestion")
	}
	if !models.IsKind(err, models.KindExtraction) {
		t.Errorf("error kind = %v, want extraction", models.KindOf(err))
	}
	if fx.metadata.count() != 0 {
		t.Error("strict extraction failure must not leave a metadata record")
	}
}

func TestIngestEmbeddingFailureDegrades(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	fx.embedder.failErr = transientErr("quota exhausted")

	report, err := fx.pipeline.Ingest(context.Background(), []byte("doc"), "title", "tags")
	if err != nil {
		t.Fatalf("embedding failure must not fail the ingestion: %v", err)
	}
	if !report.MetadataStored {
		t.Error("metadata must be written when embedding fails")
	}
	if report.VectorStored {
		t.Error("report claims vector stored despite embedding failure")
	}
	if !containsStep(report.FailedSteps, models.StepVectorWrite) {
		t.Errorf("failed steps %v missing vector_write", report.FailedSteps)
	}
}

func TestIngestMetadataFailureIsError(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})
	fx.metadata.failPut = transientErr("mongo down")

	report, err := fx.pipeline.Ingest(context.Background(), []byte("doc"), "title", "tags")
	if err == nil {
		t.Fatal("metadata write failure must surface as an error")
	}
	if report.MetadataStored {
		t.Error("report claims metadata stored despite failure")
	}
	// The vector path ran first and its entry stays behind.
	if fx.vectors.count() != 1 {
		t.Errorf("vector entries = %d, want 1", fx.vectors.count())
	}
}

func TestIngestIdenticalBytesMintDistinctDocuments(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})

	first, err := fx.pipeline.Ingest(context.Background(), []byte("same bytes"), "copy", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := fx.pipeline.Ingest(context.Background(), []byte("same bytes"), "copy", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.DocumentID == second.DocumentID {
		t.Fatalf("both ingests got id %s", first.DocumentID)
	}
	if fx.metadata.count() != 2 || fx.objects.count() != 2 {
		t.Errorf("expected two independent documents, got %d records, %d objects",
			fx.metadata.count(), fx.objects.count())
	}
}

func TestStageWritesObjectOnly(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})

	id, err := fx.pipeline.Stage(context.Background(), []byte("big upload"), "Deferred Doc", "Batch")
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a minted id")
	}
	if fx.objects.count() != 1 {
		t.Fatalf("objects = %d, want 1", fx.objects.count())
	}
	if fx.metadata.count() != 0 || fx.vectors.count() != 0 {
		t.Error("staging must not touch the metadata store or vector index")
	}
	if fx.objects.objects[id].meta["title"] != "deferred doc" {
		t.Errorf("staged title = %q", fx.objects.objects[id].meta["title"])
	}
}

func TestIndexStoredResumesFromObjectMetadata(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})

	id, err := fx.pipeline.Stage(context.Background(), []byte("big upload"), "Deferred Doc", "Batch")
	if err != nil {
		t.Fatal(err)
	}

	report, err := fx.pipeline.IndexStored(context.Background(), id)
	if err != nil {
		t.Fatalf("IndexStored returned error: %v", err)
	}
	if !report.Complete() || report.Degraded() {
		t.Errorf("expected fully indexed document, got %+v", report)
	}

	record, _ := fx.metadata.Get(context.Background(), id)
	if record == nil {
		t.Fatal("metadata record missing after IndexStored")
	}
	if record.Title != "deferred doc" || record.Tags != "batch" {
		t.Errorf("resumed metadata title=%q tags=%q", record.Title, record.Tags)
	}
	if _, ok := fx.vectors.entries[id]; !ok {
		t.Error("vector entry missing after IndexStored")
	}
}

func TestIndexStoredUnknownObject(t *testing.T) {
	fx := newPipelineFixture(IngestionOptions{})

	_, err := fx.pipeline.IndexStored(context.Background(), "doc-missing")
	if err == nil {
		t.Fatal("expected error for unknown object key")
	}
	if fx.metadata.count() != 0 {
		t.Error("no metadata should be written for a missing object")
	}
}

func containsStep(steps []string, step string) bool {
	for _, s := range steps {
		if s == step {
			return true
		}
	}
	return false
}
