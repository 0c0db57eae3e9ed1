package ocr

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// textExtractor is the narrow slice of *pdf.Extractor the local engine
// needs, kept as an interface so tests can stub it without a real PDF.
type textExtractor interface {
	ExtractTextFromBytes(ctx context.Context, pdfContent []byte) (string, error)
}

// LocalEngine is a best-effort fallback when no cloud OCR credentials are
// configured (§4.5): it reuses the pdfcpu-backed text layer already
// extracted for structured PDFs rather than performing true optical
// recognition, so it only serves text-layer PDFs, not scanned images.
type LocalEngine struct {
	extractor textExtractor
	logger    arbor.ILogger
}

func NewLocalEngine(extractor textExtractor, logger arbor.ILogger) *LocalEngine {
	return &LocalEngine{extractor: extractor, logger: logger}
}

// ExtractText returns the PDF's embedded text layer and a fixed, lower
// confidence than any cloud OCR result since no recognition actually ran.
func (e *LocalEngine) ExtractText(ctx context.Context, content []byte, mimeType string) (string, float64, error) {
	if !strings.EqualFold(mimeType, "application/pdf") {
		return "", 0, nil
	}
	text, err := e.extractor.ExtractTextFromBytes(ctx, content)
	if err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(text) == "" {
		return "", 0, nil
	}
	return text, 0.5, nil
}

var _ interfaces.LocalOCREngine = (*LocalEngine)(nil)
