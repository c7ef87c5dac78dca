package document

import (
	"fmt"

	"github.com/nikhilbhutani/resumeprocessor/pkg/textextract"
)

// TextExtractor turns an uploaded file into plain résumé text.
type TextExtractor interface {
	Extract(data []byte, filename, contentType string) (string, error)
	SupportedTypes() []string
}

type extractor struct{}

func NewTextExtractor() TextExtractor {
	return extractor{}
}

func (extractor) Extract(data []byte, filename, contentType string) (string, error) {
	result, err := textextract.FromBytes(data, filename, contentType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return result.Content, nil
}

func (extractor) SupportedTypes() []string {
	return textextract.SupportedTypes()
}
