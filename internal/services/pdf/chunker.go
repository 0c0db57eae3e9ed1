// -----------------------------------------------------------------------
// PDF Chunker - splits oversized PDFs into overlapping page windows so the
// OCR Router never has to hold a whole large document in memory at once.
// Uses pdfcpu's page-trim API, the same library the Extractor already uses
// for page counting.
// -----------------------------------------------------------------------

package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// Chunker implements interfaces.PDFChunker using pdfcpu.
type Chunker struct {
	logger  arbor.ILogger
	tempDir string
}

var _ interfaces.PDFChunker = (*Chunker)(nil)

func NewChunker(logger arbor.ILogger) *Chunker {
	tempDir := filepath.Join(os.TempDir(), "taxpipeline-chunks")
	os.MkdirAll(tempDir, 0755)
	return &Chunker{logger: logger, tempDir: tempDir}
}

// CountPages returns the page count of the PDF at path.
func (c *Chunker) CountPages(path string) (int, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pdf context: %w", err)
	}
	return pdfCtx.PageCount, nil
}

// Chunk splits the PDF at path into ordered, overlapping page windows of
// chunkSize pages (§4.5, §5). A transaction table split across a page break
// between chunk N and N+1 is captured whole in at least one of the two,
// since each window after the first repeats the previous window's final
// `overlap` pages.
func (c *Chunker) Chunk(path string, chunkSize, overlap int) ([]interfaces.PDFChunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunkSize), got %d (chunkSize=%d)", overlap, chunkSize)
	}

	totalPages, err := c.CountPages(path)
	if err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	stride := chunkSize - overlap

	var chunks []interfaces.PDFChunk
	for start := 1; start <= totalPages; start += stride {
		end := start + chunkSize - 1
		if end > totalPages {
			end = totalPages
		}

		outPath := filepath.Join(c.tempDir, fmt.Sprintf("chunk_%d_%d_%d.pdf", os.Getpid(), start, end))
		selection := []string{fmt.Sprintf("%d-%d", start, end)}
		if err := api.TrimFile(path, outPath, selection, conf); err != nil {
			// Clean up any chunks already written before returning the error.
			c.Cleanup(chunks)
			return nil, fmt.Errorf("trim pages %d-%d: %w", start, end, err)
		}

		chunks = append(chunks, interfaces.PDFChunk{Path: outPath, StartPage: start, EndPage: end})

		if end == totalPages {
			break
		}
	}

	return chunks, nil
}

// Cleanup removes the temporary chunk files. Idempotent.
func (c *Chunker) Cleanup(chunks []interfaces.PDFChunk) error {
	var firstErr error
	for _, chunk := range chunks {
		if err := os.Remove(chunk.Path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
