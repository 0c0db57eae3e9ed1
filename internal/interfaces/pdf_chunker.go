package interfaces

// PDFChunk is one page-window of a larger PDF, materialized as a temporary
// file so the OCR Router can treat it like any standalone document.
type PDFChunk struct {
	Path      string
	StartPage int
	EndPage   int
}

// PDFChunker bounds memory use when processing large PDFs by splitting them
// into overlapping page windows and merging per-chunk structured results
// back into one document-type-aware result.
type PDFChunker interface {
	// CountPages returns the page count of the PDF at path without loading
	// the whole document into memory.
	CountPages(path string) (int, error)

	// Chunk splits the PDF at path into ordered page windows of chunkSize
	// pages with overlap pages shared between consecutive windows, so a
	// transaction split across a page break is captured in both chunks.
	Chunk(path string, chunkSize, overlap int) ([]PDFChunk, error)

	// Cleanup removes the temporary chunk files. Idempotent: safe to call
	// on paths already removed.
	Cleanup(chunks []PDFChunk) error
}
