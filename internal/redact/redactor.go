// Package redact removes personally identifying details from free text.
package redact

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
)

// Placeholder tokens substituted for each PII category.
const (
	TokenName    = "[NAME]"
	TokenEmail   = "[EMAIL]"
	TokenPhone   = "[PHONE]"
	TokenAddress = "[ADDRESS]"
	TokenDOB     = "[DOB]"
)

const (
	temperature = 0.3
	maxTokens   = 1000
)

// ErrEmptyCompletion means the model returned no text.
var ErrEmptyCompletion = errors.New("empty redaction completion")

var systemPrompt = strings.Join([]string{
	"You remove personally identifiable information from text. Replace:",
	"- personal names with " + TokenName,
	"- email addresses with " + TokenEmail,
	"- phone numbers with " + TokenPhone,
	"- street addresses with " + TokenAddress,
	"- dates of birth with " + TokenDOB,
	"Replace gendered pronouns with gender-neutral ones (they/them/their).",
	"Preserve professional content. Return only the rewritten text.",
}, "\n")

var newlines = regexp.MustCompile(`\n+`)

type Redactor struct {
	llm llm.Completer
}

func NewRedactor(c llm.Completer) *Redactor {
	return &Redactor{llm: c}
}

// Remove returns text with PII replaced by placeholder tokens, normalized
// to a single line.
func (r *Redactor) Remove(ctx context.Context, text string) (string, error) {
	res, err := r.llm.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: llm.Temperature(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("redact: %w", err)
	}

	out := Normalize(res.Content())
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

// Normalize collapses every run of newlines into one space and trims the
// ends. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.TrimSpace(newlines.ReplaceAllString(s, " "))
}
