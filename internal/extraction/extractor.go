// Package extraction turns résumé text into an ExtractedRecord through a
// forced submit_application function call.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

var (
	// ErrNoFunctionCall means the model answered without calling submit_application.
	ErrNoFunctionCall = errors.New("no function call in extraction response")
	// ErrMalformedArguments means the call arguments are not a decodable JSON object.
	ErrMalformedArguments = errors.New("malformed function call arguments")
	// ErrMissingRequiredField means a required top-level key is absent.
	ErrMissingRequiredField = errors.New("missing required field")
)

const systemPrompt = "You are an AI NLP Resume Extractor to JSON. Your job is to fill the required fields on the function " +
	FunctionName + " with information from provided Resume. Fields that require AI generation are indicated with GenAI " +
	"and are REQUIRED. For example, you might need to extract skills as keywords based on the full Resume."

type Extractor struct {
	llm      llm.Completer
	required *gojsonschema.Schema
}

func NewExtractor(c llm.Completer) (*Extractor, error) {
	schema := map[string]any{"type": "object", "required": RequiredFields}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile required-field schema: %w", err)
	}
	return &Extractor{llm: c, required: compiled}, nil
}

// Extract asks the model to fill submit_application from resumeText.
// The decoded arguments are kept as returned, including keys and shapes the
// schema does not name; only missing fields receive defaults.
func (e *Extractor) Extract(ctx context.Context, resumeText string) (models.ExtractedRecord, error) {
	res, err := e.llm.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: "Resume:\n" + resumeText},
		},
		Tools: []llm.Tool{{
			Name:        FunctionName,
			Description: functionDescription,
			Parameters:  ApplicationSchema(),
		}},
		ToolChoice: FunctionName,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	args, err := functionArguments(res)
	if err != nil {
		return nil, err
	}
	if err := e.checkRequired(args); err != nil {
		return nil, err
	}

	var record models.ExtractedRecord
	if err := json.Unmarshal([]byte(args), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	ApplyDefaults(record)

	slog.Debug("extracted resume fields",
		"keys", len(record),
		"skills_keywords", len(record.Strings("skills_keywords")),
	)
	return record, nil
}

func functionArguments(res *llm.ChatResult) (string, error) {
	msg, ok := res.FirstMessage()
	if !ok || len(msg.ToolCalls) == 0 {
		return "", ErrNoFunctionCall
	}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == FunctionName {
			return tc.Function.Arguments, nil
		}
	}
	return "", fmt.Errorf("%w: model called %q", ErrNoFunctionCall, msg.ToolCalls[0].Function.Name)
}

func (e *Extractor) checkRequired(args string) error {
	if !json.Valid([]byte(args)) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformedArguments)
	}
	result, err := e.required.Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if result.Valid() {
		return nil
	}

	var missing []string
	for _, desc := range result.Errors() {
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				missing = append(missing, prop)
				continue
			}
		}
		if desc.Type() == "invalid_type" {
			return fmt.Errorf("%w: %s", ErrMalformedArguments, desc.Description())
		}
		missing = append(missing, desc.String())
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(missing, ", "))
}
