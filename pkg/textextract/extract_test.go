package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Software </w:t></w:r><w:r><w:t>Engineer</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDOCX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFromBytes_TXT(t *testing.T) {
	res, err := FromBytes([]byte("  Jane Doe\nEngineer \n"), "jane.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer", res.Content)
	assert.Equal(t, "txt", res.Metadata["type"])
}

func TestFromBytes_DOCX(t *testing.T) {
	data := buildDOCX(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   docxBody,
	})

	res, err := FromBytes(data, "jane.docx", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSoftware Engineer\nSkills:\tGo", res.Content)
}

func TestFromBytes_DOCXWithoutBody(t *testing.T) {
	data := buildDOCX(t, map[string]string{"word/styles.xml": `<w:styles/>`})
	_, err := FromBytes(data, "broken.docx", "")
	assert.Error(t, err)
}

func TestFromBytes_Errors(t *testing.T) {
	_, err := FromBytes([]byte("PK"), "photo.png", "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromBytes([]byte("   \n"), "empty.txt", "")
	assert.ErrorIs(t, err, ErrNoText)

	_, err = FromBytes([]byte("not a pdf"), "cv.pdf", "")
	assert.Error(t, err)
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		filename, contentType, want string
	}{
		{"cv.PDF", "", ".pdf"},
		{"cv.docx", "text/plain", ".docx"},
		{"upload", "text/plain; charset=utf-8", ".txt"},
		{"upload", "application/pdf", ".pdf"},
		{"cv.rtf", "application/rtf", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectType(tt.filename, tt.contentType), tt.filename)
	}
}
