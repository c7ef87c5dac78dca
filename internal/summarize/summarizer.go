// Package summarize writes a short neutral summary of an extracted résumé.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// DefaultMaxWords applies when the caller passes a non-positive limit.
const DefaultMaxWords = 250

const (
	temperature = 0.5
	maxTokens   = 500
)

// ErrEmptyCompletion means the model returned no text.
var ErrEmptyCompletion = errors.New("empty summary completion")

type Summarizer struct {
	llm llm.Completer
}

func NewSummarizer(c llm.Completer) *Summarizer {
	return &Summarizer{llm: c}
}

// Summarize returns the model's summary of record verbatim.
func (s *Summarizer) Summarize(ctx context.Context, record models.ExtractedRecord, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	res, err := s.llm.Complete(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildPrompt(string(data), maxWords)}},
		Temperature: llm.Temperature(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	summary := res.Content()
	if summary == "" {
		return "", ErrEmptyCompletion
	}
	return summary, nil
}

func buildPrompt(recordJSON string, maxWords int) string {
	return fmt.Sprintf(`Perform extractive summarization of the following resume in at most %d words.
Select and condense sentences and facts from the Resume Data; use only facts present in the Resume Data; do not invent or embellish.
Refer to the candidate with gender-neutral pronouns (they/them).
Cover experience, key skills and education. No introductions, headings or filler.

Resume Data:
%s`, maxWords, recordJSON)
}
