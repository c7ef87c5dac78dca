package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

type fakeCompleter struct {
	content *string
	err     error
	got     llm.ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.ChatRequest) (*llm.ChatResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResult{Choices: []llm.Choice{{Message: llm.ResultMessage{Role: llm.RoleAssistant, Content: f.content}}}}, nil
}

func text(s string) *string { return &s }

func TestSummarize(t *testing.T) {
	fc := &fakeCompleter{content: text("  They build distributed systems.\n")}
	s := NewSummarizer(fc)

	rec := models.ExtractedRecord{"personalInformation": map[string]any{"firstName": "Jane"}}
	got, err := s.Summarize(context.Background(), rec, 120)
	require.NoError(t, err)

	assert.Equal(t, "  They build distributed systems.\n", got, "content is returned verbatim")
	require.Len(t, fc.got.Messages, 1)
	assert.Equal(t, llm.RoleUser, fc.got.Messages[0].Role)
	assert.Contains(t, fc.got.Messages[0].Content, "120 words")
	assert.Contains(t, fc.got.Messages[0].Content, "extractive summarization")
	assert.Contains(t, fc.got.Messages[0].Content, `"firstName": "Jane"`)
	require.NotNil(t, fc.got.Temperature)
	assert.InDelta(t, 0.5, *fc.got.Temperature, 1e-6)
	assert.Equal(t, 500, fc.got.MaxTokens)
	assert.Empty(t, fc.got.Tools)
}

func TestSummarize_DefaultWordLimit(t *testing.T) {
	fc := &fakeCompleter{content: text("ok")}
	_, err := NewSummarizer(fc).Summarize(context.Background(), models.ExtractedRecord{}, 0)
	require.NoError(t, err)
	assert.Contains(t, fc.got.Messages[0].Content, "250 words")
}

func TestSummarize_EmptyContent(t *testing.T) {
	_, err := NewSummarizer(&fakeCompleter{}).Summarize(context.Background(), models.ExtractedRecord{}, 50)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestSummarize_GatewayError(t *testing.T) {
	_, err := NewSummarizer(&fakeCompleter{err: llm.ErrPermanent}).Summarize(context.Background(), models.ExtractedRecord{}, 50)
	assert.ErrorIs(t, err, llm.ErrPermanent)
}
