package services

import (
	"bytes"
	"context"
	"fmt"

	"document-search-platform/models"
)

// AutoExtractor sniffs the document format from magic bytes and dispatches
// to the matching extractor. Formats are pluggable; anything unrecognized is
// an extraction error, which the pipeline treats as a per-document failure.
type AutoExtractor struct {
	pdf  TextExtractor
	xlsx TextExtractor
}

func NewAutoExtractor() *AutoExtractor {
	return &AutoExtractor{
		pdf:  NewPDFExtractor(),
		xlsx: NewXLSXExtractor(),
	}
}

func (e *AutoExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return e.pdf.Extract(ctx, data)
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		// XLSX is a zip container
		return e.xlsx.Extract(ctx, data)
	default:
		return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
			fmt.Errorf("unsupported document format"))
	}
}
