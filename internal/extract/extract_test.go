package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaya-ai/relaya/internal/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtract_PlainText(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "plain text body")

	text, err := NewExtractor().Extract(path, "text/plain")

	require.NoError(t, err)
	assert.Equal(t, "plain text body", text)
}

func TestExtract_Markdown(t *testing.T) {
	path := writeTempFile(t, "doc.md", "# Title\n\nsome markdown")

	text, err := NewExtractor().Extract(path, "text/markdown; charset=utf-8")

	require.NoError(t, err)
	assert.Contains(t, text, "some markdown")
}

func TestExtract_MarkdownAlias(t *testing.T) {
	path := writeTempFile(t, "doc.md", "body")

	text, err := NewExtractor().Extract(path, "text/x-markdown")

	require.NoError(t, err)
	assert.Equal(t, "body", text)
}

func TestExtract_UnsupportedType(t *testing.T) {
	path := writeTempFile(t, "doc.docx", "binary")

	_, err := NewExtractor().Extract(path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt"), "text/plain")
	assert.Error(t, err)
}
