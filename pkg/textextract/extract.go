package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no text found in document")
)

type ExtractedText struct {
	Content  string
	Pages    int
	Metadata map[string]string
}

// FromBytes extracts plain text from an uploaded file. The type is taken
// from the filename extension, falling back to the content type.
func FromBytes(data []byte, filename, contentType string) (*ExtractedText, error) {
	fileType := DetectType(filename, contentType)
	res, err := Extract(bytes.NewReader(data), int64(len(data)), fileType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, filename)
	}
	return res, nil
}

// DetectType returns the file type Extract understands, or "" when
// neither hint is recognized.
func DetectType(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); isSupported(ext) {
		return ext
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "application/pdf":
			return ".pdf"
		case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
			return ".docx"
		case "text/plain":
			return ".txt"
		}
	}
	return ""
}

func Extract(data io.ReaderAt, size int64, fileType string) (*ExtractedText, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".docx", "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDOCX(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".docx", ".txt"}
}

func isSupported(ext string) bool {
	for _, t := range SupportedTypes() {
		if t == ext {
			return true
		}
	}
	return false
}

func extractPDF(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return &ExtractedText{
		Content: strings.TrimSpace(buf.String()),
		Pages:   numPages,
		Metadata: map[string]string{
			"type": "pdf",
		},
	}, nil
}

func extractDOCX(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()

		text, err := docxParagraphs(rc)
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		return &ExtractedText{
			Content: text,
			Pages:   1,
			Metadata: map[string]string{
				"type": "docx",
			},
		}, nil
	}
	return nil, errors.New("open DOCX: word/document.xml not found")
}

// docxParagraphs joins the text runs of each w:p element, one paragraph per
// line. Tabs and breaks inside a paragraph become whitespace.
func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out  strings.Builder
		para strings.Builder
		inT  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inT = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte(' ')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inT = false
			case "p":
				if line := strings.TrimSpace(para.String()); line != "" {
					out.WriteString(line)
					out.WriteByte('\n')
				}
				para.Reset()
			}
		case xml.CharData:
			if inT {
				para.Write(el)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	return &ExtractedText{
		Content: string(bytes.TrimSpace(buf)),
		Pages:   1,
		Metadata: map[string]string{
			"type": "txt",
		},
	}, nil
}
