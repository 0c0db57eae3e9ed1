package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestRenderMarkdownToPDF(t *testing.T) {
	logger := arbor.NewLogger()

	tests := []struct {
		name     string
		markdown string
	}{
		{name: "basic heading and paragraph", markdown: "# Title\n\nSome paragraph text.\n\n- Item 1\n- Item 2"},
		{name: "empty", markdown: ""},
		{
			name: "table and code block",
			markdown: "# Header 1\n\nSome text.\n\n| Col 1 | Col 2 |\n|-------|-------|\n| Val 1 | Val 2 |\n\n" +
				"```go\nfunc main() {}\n```",
		},
		{name: "bold and italic", markdown: "Normal **Bold** *Italic* ***BoldItalic***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfBytes, err := renderMarkdownToPDF(tt.markdown, logger)
			assert.NoError(t, err)
			assert.NotEmpty(t, pdfBytes)
			assert.Equal(t, "%PDF", string(pdfBytes[:4]))
		})
	}
}

func TestRenderMarkdownToPDF_Table(t *testing.T) {
	logger := arbor.NewLogger()

	markdown := "# Table Test\n\n| ID | Name | Role | Description |\n|----|------|------|-------------|\n" +
		"| 1  | Alice| Admin| Super user  |\n| 2  | Bob  | User | Normal user |\n\nEnd of table.\n"

	pdfBytes, err := renderMarkdownToPDF(markdown, logger)
	assert.NoError(t, err)
	assert.Greater(t, len(pdfBytes), 500)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}
