package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) ExtractTextFromBytes(ctx context.Context, pdfContent []byte) (string, error) {
	return f.text, f.err
}

func TestLocalEngine_ExtractText_NonPDFMimeTypeReturnsEmpty(t *testing.T) {
	e := NewLocalEngine(&fakeTextExtractor{text: "should not be seen"}, arbor.NewLogger())
	text, confidence, err := e.ExtractText(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, confidence)
}

func TestLocalEngine_ExtractText_PDFReturnsLowerConfidence(t *testing.T) {
	e := NewLocalEngine(&fakeTextExtractor{text: "extracted text layer"}, arbor.NewLogger())
	text, confidence, err := e.ExtractText(context.Background(), []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted text layer", text)
	assert.Equal(t, 0.5, confidence)
}

func TestLocalEngine_ExtractText_EmptyTextLayer(t *testing.T) {
	e := NewLocalEngine(&fakeTextExtractor{text: "   "}, arbor.NewLogger())
	text, confidence, err := e.ExtractText(context.Background(), []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, confidence)
}
