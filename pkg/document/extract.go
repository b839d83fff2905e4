package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// PageSeparator joins per-page OCR output in the document-level text.
const PageSeparator = "\n\n"

// ExtractText runs Tesseract over every page image in order and returns the
// flattened document text. Pages are processed strictly sequentially; OCR cost
// dominates request latency and that cost is accepted here.
func ExtractText(ctx context.Context, pages []string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage("eng"); err != nil {
		return "", fmt.Errorf("ocr language: %w", err)
	}
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := client.SetImage(page); err != nil {
			return "", fmt.Errorf("ocr set image %s: %w", filepath.Base(page), err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("ocr %s: %w", filepath.Base(page), err)
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return JoinPages(texts), nil
}

// JoinPages concatenates per-page texts in page order with the separator.
func JoinPages(texts []string) string {
	return strings.Join(texts, PageSeparator)
}
