package ocr

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// Router implements interfaces.OCRRouter, trying the cloud and local
// engines in the order its configured OCRMode dictates (§4.5). It never
// decides whether to chunk a PDF first — that stays the Document
// Pipeline's call after a page-count probe.
type Router struct {
	mode   interfaces.OCRMode
	cloud  interfaces.CloudOCRClient
	local  interfaces.LocalOCREngine
	logger arbor.ILogger
}

func NewRouter(config *common.OCRConfig, cloud interfaces.CloudOCRClient, local interfaces.LocalOCREngine, logger arbor.ILogger) *Router {
	return &Router{mode: interfaces.OCRMode(config.Mode), cloud: cloud, local: local, logger: logger}
}

func (r *Router) Process(ctx context.Context, content []byte, mimeType string) (*interfaces.OCRResult, error) {
	switch r.mode {
	case interfaces.OCRModeCloudOnly:
		return r.processCloud(ctx, content, mimeType)
	case interfaces.OCRModeLocalOnly:
		return r.processLocal(ctx, content, mimeType)
	case interfaces.OCRModeLocalPrimary:
		if result, err := r.processLocal(ctx, content, mimeType); err == nil {
			return result, nil
		}
		r.logger.Warn().Msg("Local OCR engine failed, falling back to cloud")
		return r.processCloud(ctx, content, mimeType)
	case interfaces.OCRModeCloudPrimary, "":
		fallthrough
	default:
		if r.cloud == nil {
			return r.processLocal(ctx, content, mimeType)
		}
		result, err := r.processCloud(ctx, content, mimeType)
		if err == nil {
			return result, nil
		}
		r.logger.Warn().Err(err).Msg("Cloud OCR failed, falling back to local engine")
		return r.processLocal(ctx, content, mimeType)
	}
}

func (r *Router) processCloud(ctx context.Context, content []byte, mimeType string) (*interfaces.OCRResult, error) {
	if r.cloud == nil {
		return nil, fmt.Errorf("cloud OCR client not configured")
	}
	return r.cloud.Process(ctx, content, mimeType)
}

func (r *Router) processLocal(ctx context.Context, content []byte, mimeType string) (*interfaces.OCRResult, error) {
	if r.local == nil {
		return nil, fmt.Errorf("local OCR engine not configured")
	}
	text, confidence, err := r.local.ExtractText(ctx, content, mimeType)
	if err != nil {
		return nil, fmt.Errorf("local OCR extraction: %w", err)
	}
	return &interfaces.OCRResult{
		Text:       text,
		Pages:      []interfaces.OCRPage{{PageNumber: 1, Text: text}},
		Confidence: confidence,
		EngineID:   "local_pdfcpu",
	}, nil
}

var _ interfaces.OCRRouter = (*Router)(nil)
