package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
)

func TestChunker_Chunk_InvalidParameters(t *testing.T) {
	c := NewChunker(arbor.NewLogger())

	_, err := c.Chunk("unused.pdf", 0, 0)
	assert.Error(t, err, "chunk size must be positive")

	_, err = c.Chunk("unused.pdf", 8, 8)
	assert.Error(t, err, "overlap must be smaller than chunk size")

	_, err = c.Chunk("unused.pdf", 8, 10)
	assert.Error(t, err, "overlap must be smaller than chunk size")
}

func TestChunker_Cleanup_Idempotent(t *testing.T) {
	c := NewChunker(arbor.NewLogger())

	err := c.Cleanup([]interfaces.PDFChunk{})
	assert.NoError(t, err)
}
