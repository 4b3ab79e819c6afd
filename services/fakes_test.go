package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"document-search-platform/models"
)

// In-memory fakes for the backing capabilities, one per interface, so the
// pipeline and retrieval tests never touch a real store.

type fakeIDs struct {
	mu   sync.Mutex
	next int
}

func (f *fakeIDs) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("doc-%04d", f.next)
}

type storedObject struct {
	data []byte
	meta map[string]string
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]storedObject

	failPut     error
	failPutLeft int // fail this many Put calls, then succeed
	failGet     error
	failPresign error
	getHook     func() // runs at the top of every Get
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]storedObject)}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPutLeft > 0 {
		f.failPutLeft--
		err := f.failPut
		if f.failPutLeft == 0 {
			f.failPut = nil
		}
		return err
	}
	if f.failPut != nil {
		return f.failPut
	}
	f.objects[key] = storedObject{data: data, meta: metadata}
	return nil
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, map[string]string, error) {
	if f.getHook != nil {
		f.getHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, nil, f.failGet
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, nil, models.WrapError(models.KindTransient, "fake.get", key, fmt.Errorf("no such key"))
	}
	return obj.data, obj.meta, nil
}

func (f *fakeObjectStore) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *fakeObjectStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.failPresign != nil {
		return "", f.failPresign
	}
	return fmt.Sprintf("https://signed.example/%s?expires=%d", key, int(ttl.Seconds())), nil
}

func (f *fakeObjectStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeMetadataStore struct {
	mu      sync.Mutex
	records map[string]models.MetadataRecord

	failPut  error
	failScan error
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{records: make(map[string]models.MetadataRecord)}
}

func (f *fakeMetadataStore) Put(ctx context.Context, record models.MetadataRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.records[record.ID] = record
	return nil
}

func (f *fakeMetadataStore) Get(ctx context.Context, id string) (*models.MetadataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (f *fakeMetadataStore) Scan(ctx context.Context, field, substring string) ([]models.MetadataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failScan != nil {
		return nil, f.failScan
	}
	var matches []models.MetadataRecord
	for _, record := range f.records {
		value := record.Title
		if field == models.FieldTags {
			value = record.Tags
		}
		if strings.Contains(value, substring) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

func (f *fakeMetadataStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeVectorIndex struct {
	mu      sync.Mutex
	entries map[string][]float32

	failUpsert error
	queryHits  []VectorHit
	failQuery  error
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{entries: make(map[string][]float32)}
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, id string, vector []float32, payload models.VectorPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert != nil {
		return f.failUpsert
	}
	f.entries[id] = vector
	return nil
}

func (f *fakeVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]VectorHit, error) {
	if f.failQuery != nil {
		return nil, f.failQuery
	}
	if len(f.queryHits) > k {
		return f.queryHits[:k], nil
	}
	return f.queryHits, nil
}

func (f *fakeVectorIndex) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeEmbedder struct {
	dim     int
	failErr error
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text)%7) + float32(i)
	}
	return vec, nil
}

type fakeExtractor struct {
	failErr error
	// failOn marks byte payloads that should fail even when failErr is nil
	failOn string
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if f.failErr != nil {
		return "", f.failErr
	}
	if f.failOn != "" && string(data) == f.failOn {
		return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
			fmt.Errorf("unreadable document"))
	}
	return "text of " + string(data), nil
}

func transientErr(msg string) error {
	return models.WrapError(models.KindTransient, "fake", "", fmt.Errorf("%s", msg))
}

func extractionErr(msg string) error {
	return models.WrapError(models.KindExtraction, models.StepExtraction, "", fmt.Errorf("%s", msg))
}

type pipelineFixture struct {
	ids       *fakeIDs
	objects   *fakeObjectStore
	metadata  *fakeMetadataStore
	vectors   *fakeVectorIndex
	embedder  *fakeEmbedder
	extractor *fakeExtractor
	pipeline  *IngestionPipeline
}

func newPipelineFixture(opts IngestionOptions) *pipelineFixture {
	fx := &pipelineFixture{
		ids:       &fakeIDs{},
		objects:   newFakeObjectStore(),
		metadata:  newFakeMetadataStore(),
		vectors:   newFakeVectorIndex(),
		embedder:  &fakeEmbedder{dim: 4},
		extractor: &fakeExtractor{},
	}
	if opts.RetryBackoffBase == 0 {
		opts.RetryBackoffBase = time.Millisecond
	}
	fx.pipeline = NewIngestionPipeline(
		fx.ids, fx.objects, fx.metadata, fx.vectors, fx.embedder, fx.extractor, opts, nil,
	)
	return fx
}
