package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"document-search-platform/internal/logger"
	"document-search-platform/models"
)

// PDFExtractor extracts plain text from PDF bytes.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract walks every page and concatenates its text. A page that fails to
// decode is skipped; the whole document fails only when nothing at all could
// be extracted.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
			fmt.Errorf("failed to create PDF reader: %w", err))
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", models.WrapError(models.KindExtraction, models.StepExtraction, "", err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
			fmt.Errorf("no text extracted from %d pages", pages))
	}
	return extracted, nil
}
