package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"document-search-platform/models"
)

// XLSXExtractor extracts cell text from spreadsheet bytes, sheet by sheet,
// rows joined with tabs.
type XLSXExtractor struct{}

func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

func (e *XLSXExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
			fmt.Errorf("failed to open spreadsheet: %w", err))
	}
	defer f.Close()

	var textBuilder strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", models.WrapError(models.KindExtraction, models.StepExtraction, "", err)
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
				fmt.Errorf("failed to read sheet %q: %w", sheet, err))
		}
		for _, row := range rows {
			textBuilder.WriteString(strings.Join(row, "\t"))
			textBuilder.WriteString("\n")
		}
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return "", models.WrapError(models.KindExtraction, models.StepExtraction, "",
			fmt.Errorf("no text extracted from spreadsheet"))
	}
	return extracted, nil
}
