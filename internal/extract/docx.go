package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDocumentPath    = "word/document.xml"
	docxContentTypes    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

type docxContentTypeList struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// docxMainPart reads the main document part name from [Content_Types].xml.
// It returns "" when the package does not declare one.
func docxMainPart(files []*zip.File) string {
	f := findZipFile(files, docxContentTypes)
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	var types docxContentTypeList
	if err := xml.NewDecoder(rc).Decode(&types); err != nil {
		return ""
	}
	for _, o := range types.Overrides {
		if o.ContentType == docxMainContentType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return ""
}

func findZipFile(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// extractDOCX walks the main document part and emits the text runs, one
// line per paragraph. The part is located through [Content_Types].xml and
// falls back to word/document.xml.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	partName := docxMainPart(zr.File)
	if partName == "" {
		partName = docxDocumentPath
	}
	doc := findZipFile(zr.File, partName)
	if doc == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", partName)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: open %s: %w", doc.Name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		b         strings.Builder
		paragraph strings.Builder
		inText    bool
	)
	flush := func() {
		if line := strings.TrimSpace(paragraph.String()); line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		paragraph.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract DOCX: parse: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br":
				paragraph.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	flush()

	return b.String(), nil
}
