package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

func minimalDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract_Plain(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{name: "txt", content: []byte("Hello world\nLine 2"), ext: ".txt", want: "Hello world\nLine 2"},
		{name: "markdown without dot", content: []byte("# Title\n\nbody"), ext: "md", want: "# Title\n\nbody"},
		{name: "upper case ext", content: []byte("a,b\n1,2"), ext: ".CSV", want: "a,b\n1,2"},
		{name: "invalid utf8", content: []byte("hello\x80world"), ext: ".txt", want: "hello\ufffdworld"},
		{name: "bom and whitespace", content: []byte("\ufeff  padded  \n"), ext: ".txt", want: "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(tt.content, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract([]byte("x"), ".exe")

	assert.ErrorIs(t, err, domain.ErrUnsupportedDocumentType)
	assert.False(t, e.Supported(".exe"))
	assert.True(t, e.Supported("PDF"))
}

func TestExtract_Excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Title"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Value 1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Value 2"))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := NewExtractor().Extract(buf.Bytes(), ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, "# Sheet1\nTitle\nValue 1\tValue 2", got)
}

func TestExtract_Docx(t *testing.T) {
	content := minimalDocx(t,
		`<w:p w:rsidR="00A1"><w:r><w:t>First</w:t></w:r><w:r><w:t xml:space="preserve"> paragraph</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Second</w:t></w:r></w:p>`)

	got, err := NewExtractor().Extract(content, ".docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond", got)
}

func TestExtract_DocxMainPartFromContentTypes(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	write := func(name, data string) {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(data))
		require.NoError(t, err)
	}
	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
		`<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document2.xml"/>`+
		`</Types>`)
	write("word/document.xml", `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>stale</w:t></w:r></w:p></w:body></w:document>`)
	write("word/document2.xml", `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>current</w:t></w:r></w:p></w:body></w:document>`)
	require.NoError(t, w.Close())

	got, err := NewExtractor().Extract(buf.Bytes(), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "current", got)
}

func TestExtract_DocxNotZip(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("not a zip"), ".docx")
	assert.Error(t, err)
}

func TestExtract_DocxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewExtractor().Extract(buf.Bytes(), ".docx")
	assert.ErrorContains(t, err, "word/document.xml not found")
}

func TestExtract_InvalidPDF(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("%PDF-garbage"), ".pdf")
	assert.Error(t, err)
}
