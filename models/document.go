package models

import "time"

// Document is the logical unit of indexed content. The ID is minted at
// ingestion time and doubles as the S3 object key, so metadata records,
// vector entries and stored objects are always co-addressable.
type Document struct {
	ID              string    `bson:"_id" json:"id"`
	Title           string    `bson:"title" json:"title"`
	Tags            string    `bson:"tags" json:"tags"`
	UploadTimestamp time.Time `bson:"upload_timestamp" json:"upload_timestamp"`
	BucketRef       string    `bson:"bucket_ref" json:"bucket_ref"`
}

// MetadataRecord is the metadata store's view of a document. Records are
// written once after a successful object-store write and never mutated;
// re-ingestion mints a new ID instead of overwriting.
type MetadataRecord struct {
	ID              string    `bson:"_id" json:"id"`
	Title           string    `bson:"title" json:"title"`
	Tags            string    `bson:"tags" json:"tags"`
	UploadTimestamp time.Time `bson:"upload_timestamp" json:"upload_timestamp"`
	BucketRef       string    `bson:"bucket_ref" json:"bucket_ref"`
}

// VectorPayload is stored alongside the embedding in the vector index.
type VectorPayload struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
	Tags    string `json:"tags,omitempty"`
}

// SearchResult is the common result shape shared by metadata search and
// semantic search. Score is zero for metadata matches.
type SearchResult struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Tags            string    `json:"tags"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	AccessURL       string    `json:"access_url,omitempty"`
	Score           float64   `json:"score,omitempty"`
}

// Ingestion step outcomes reported per document.
const (
	StepObjectWrite   = "object_write"
	StepExtraction    = "extraction"
	StepVectorWrite   = "vector_write"
	StepMetadataWrite = "metadata_write"
)

// IngestReport describes the outcome of one ingestion. ObjectStored and
// MetadataStored both true means the document is searchable by metadata;
// VectorStored additionally true means it is semantically searchable.
// Anything else is a recognized degraded state, not a silent failure.
type IngestReport struct {
	DocumentID      string    `json:"document_id"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
	ObjectStored    bool      `json:"object_stored"`
	TextExtracted   bool      `json:"text_extracted"`
	VectorStored    bool      `json:"vector_stored"`
	MetadataStored  bool      `json:"metadata_stored"`
	FailedSteps     []string  `json:"failed_steps,omitempty"`
}

// Complete reports whether both mandatory stores were written.
func (r *IngestReport) Complete() bool {
	return r.ObjectStored && r.MetadataStored
}

// Degraded reports whether the document is usable but missing its vector
// entry or metadata record.
func (r *IngestReport) Degraded() bool {
	return r.ObjectStored && (!r.VectorStored || !r.MetadataStored)
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
	Deferred bool   `json:"deferred,omitempty"`
}

// Upload status constants.
const (
	StatusIndexed  = "indexed"
	StatusDegraded = "degraded"
	StatusQueued   = "queued"
	StatusFailed   = "failed"
)

// Metadata search fields. Field names are matched case-insensitively by the
// retrieval service so callers may send "Title" or "title".
const (
	FieldTitle = "title"
	FieldTags  = "tags"
)
