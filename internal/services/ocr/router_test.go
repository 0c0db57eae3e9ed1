package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
)

type fakeCloudClient struct {
	result *interfaces.OCRResult
	err    error
}

func (f *fakeCloudClient) Process(ctx context.Context, content []byte, mimeType string) (*interfaces.OCRResult, error) {
	return f.result, f.err
}

type fakeLocalEngine struct {
	text       string
	confidence float64
	err        error
}

func (f *fakeLocalEngine) ExtractText(ctx context.Context, content []byte, mimeType string) (string, float64, error) {
	return f.text, f.confidence, f.err
}

func TestRouter_CloudPrimary_UsesCloudWhenHealthy(t *testing.T) {
	cloud := &fakeCloudClient{result: &interfaces.OCRResult{Text: "cloud text", EngineID: "cloud_document_ai"}}
	local := &fakeLocalEngine{text: "local text", confidence: 0.5}
	r := NewRouter(&common.OCRConfig{Mode: "cloud_primary"}, cloud, local, arbor.NewLogger())

	result, err := r.Process(context.Background(), []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "cloud text", result.Text)
}

func TestRouter_CloudPrimary_FallsBackToLocalOnCloudError(t *testing.T) {
	cloud := &fakeCloudClient{err: errors.New("cloud unavailable")}
	local := &fakeLocalEngine{text: "local text", confidence: 0.5}
	r := NewRouter(&common.OCRConfig{Mode: "cloud_primary"}, cloud, local, arbor.NewLogger())

	result, err := r.Process(context.Background(), []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "local text", result.Text)
	assert.Equal(t, "local_pdfcpu", result.EngineID)
}

func TestRouter_CloudOnly_DoesNotFallBack(t *testing.T) {
	cloud := &fakeCloudClient{err: errors.New("cloud unavailable")}
	local := &fakeLocalEngine{text: "local text"}
	r := NewRouter(&common.OCRConfig{Mode: "cloud_only"}, cloud, local, arbor.NewLogger())

	_, err := r.Process(context.Background(), []byte("x"), "application/pdf")
	assert.Error(t, err)
}

func TestRouter_LocalPrimary_FallsBackToCloudOnLocalError(t *testing.T) {
	cloud := &fakeCloudClient{result: &interfaces.OCRResult{Text: "cloud text"}}
	local := &fakeLocalEngine{err: errors.New("not a text-layer pdf")}
	r := NewRouter(&common.OCRConfig{Mode: "local_primary"}, cloud, local, arbor.NewLogger())

	result, err := r.Process(context.Background(), []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "cloud text", result.Text)
}

func TestRouter_LocalOnly_NeverCallsCloud(t *testing.T) {
	cloud := &fakeCloudClient{result: &interfaces.OCRResult{Text: "should not be used"}}
	local := &fakeLocalEngine{text: "local only text", confidence: 0.5}
	r := NewRouter(&common.OCRConfig{Mode: "local_only"}, cloud, local, arbor.NewLogger())

	result, err := r.Process(context.Background(), []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "local only text", result.Text)
}
