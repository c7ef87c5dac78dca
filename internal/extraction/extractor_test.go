package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

type fakeCompleter struct {
	result *llm.ChatResult
	err    error
	got    llm.ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.ChatRequest) (*llm.ChatResult, error) {
	f.got = req
	return f.result, f.err
}

func toolCallResult(name, args string) *llm.ChatResult {
	return &llm.ChatResult{
		Choices: []llm.Choice{{
			Message: llm.ResultMessage{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{
					ID:       "call_1",
					Type:     "function",
					Function: llm.FunctionCall{Name: name, Arguments: args},
				}},
			},
			FinishReason: "tool_calls",
		}},
		Usage: map[string]int{},
	}
}

const janeArgs = `{
	"personalInformation": {"firstName": "Jane", "lastName": "Doe"},
	"contactInformation": {"email": "jane@x.com", "phone": "555", "address": {"street": "1 Main", "city": "Austin", "state": "TX", "zip": "78701"}},
	"education": [{"institution": "UT", "degree": "BS", "graduationDate": "2015-05-01"}],
	"workExperience": [{"employer": "Acme", "position": "Engineer", "startDate": "2016-01-01"}],
	"skills": ["Go, Python", "Kubernetes"],
	"skills_keywords": [],
	"ai_generated_roles": ["Backend Engineer", "SRE"]
}`

func newExtractor(t *testing.T, c llm.Completer) *Extractor {
	t.Helper()
	e, err := NewExtractor(c)
	require.NoError(t, err)
	return e
}

func TestExtract_ForcesFunctionCall(t *testing.T) {
	fc := &fakeCompleter{result: toolCallResult(FunctionName, janeArgs)}
	e := newExtractor(t, fc)

	rec, err := e.Extract(context.Background(), "Jane Doe, engineer")
	require.NoError(t, err)

	require.Len(t, fc.got.Messages, 2)
	assert.Equal(t, llm.RoleSystem, fc.got.Messages[0].Role)
	assert.Contains(t, fc.got.Messages[0].Content, "submit_application")
	assert.Equal(t, "Resume:\nJane Doe, engineer", fc.got.Messages[1].Content)
	assert.Equal(t, FunctionName, fc.got.ToolChoice)
	require.Len(t, fc.got.Tools, 1)
	assert.Equal(t, FunctionName, fc.got.Tools[0].Name)

	person := rec.Object("personalInformation")
	assert.Equal(t, "Jane", person["firstName"])
	assert.Equal(t, models.NotAvailable, person["middleName"])
	assert.Equal(t, models.NotAvailable, person["dateOfBirth"])
	assert.Equal(t, models.NotAvailable, firstElem(t, rec, "education")["fieldOfStudy"])
	work := firstElem(t, rec, "workExperience")
	assert.Equal(t, models.Present, work["endDate"])
	assert.Equal(t, models.NotAvailable, work["responsibilities"])
	assert.Equal(t, []string{"Go", "Python", "Kubernetes"}, rec.Strings("skills_keywords"))
	assert.Equal(t, []any{}, rec["references"])
}

func firstElem(t *testing.T, rec models.ExtractedRecord, key string) map[string]any {
	t.Helper()
	list, ok := rec[key].([]any)
	require.True(t, ok, "%s is not a list", key)
	require.NotEmpty(t, list)
	obj, ok := list[0].(map[string]any)
	require.True(t, ok, "%s[0] is not an object", key)
	return obj
}

func TestExtract_KeepsArgumentsAsReturned(t *testing.T) {
	args := `{
		"personalInformation": {"firstName": "Jane", "lastName": "Doe", "pronouns": "she/her"},
		"contactInformation": {"email": "jane@x.com", "phone": "555", "address": {"city": "Austin"}},
		"education": [],
		"workExperience": [{"employer": "Acme", "position": "Engineer", "startDate": "2016", "responsibilities": ["Ship APIs", "Run on-call"]}],
		"skills_keywords": ["Go"],
		"ai_generated_roles": ["SRE"],
		"portfolio": "https://jane.dev",
		"certifications": [{"name": "CKA", "year": 2021}]
	}`
	e := newExtractor(t, &fakeCompleter{result: toolCallResult(FunctionName, args)})

	rec, err := e.Extract(context.Background(), "text")
	require.NoError(t, err)

	work := firstElem(t, rec, "workExperience")
	assert.Equal(t, []any{"Ship APIs", "Run on-call"}, work["responsibilities"])
	assert.Equal(t, models.Present, work["endDate"])
	assert.Equal(t, "https://jane.dev", rec["portfolio"])
	assert.Equal(t, []any{map[string]any{"name": "CKA", "year": float64(2021)}}, rec["certifications"])
	assert.Equal(t, "she/her", rec.Object("personalInformation")["pronouns"])

	address, ok := rec.Object("contactInformation")["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Austin", address["city"])
	assert.Equal(t, models.NotAvailable, address["zip"])

	stored, err := json.Marshal(models.ProcessedResult{Record: rec, Summary: "s"})
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"responsibilities":["Ship APIs","Run on-call"]`)
	assert.Contains(t, string(stored), `"portfolio":"https://jane.dev"`)
}

func TestExtract_UnexpectedShapesPassThrough(t *testing.T) {
	args := `{"personalInformation": "Jane", "contactInformation": {}, "education": [], "workExperience": "see attached", "skills_keywords": [], "ai_generated_roles": []}`
	e := newExtractor(t, &fakeCompleter{result: toolCallResult(FunctionName, args)})

	rec, err := e.Extract(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Jane", rec["personalInformation"])
	assert.Equal(t, "see attached", rec["workExperience"])
}

func TestExtract_NoToolCall(t *testing.T) {
	content := "I cannot help"
	fc := &fakeCompleter{result: &llm.ChatResult{Choices: []llm.Choice{{
		Message: llm.ResultMessage{Role: llm.RoleAssistant, Content: &content},
	}}}}
	e := newExtractor(t, fc)

	_, err := e.Extract(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoFunctionCall)
}

func TestExtract_NoChoices(t *testing.T) {
	e := newExtractor(t, &fakeCompleter{result: &llm.ChatResult{}})
	_, err := e.Extract(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoFunctionCall)
}

func TestExtract_WrongFunction(t *testing.T) {
	e := newExtractor(t, &fakeCompleter{result: toolCallResult("lookup_weather", `{}`)})
	_, err := e.Extract(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoFunctionCall)
}

func TestExtract_MalformedArguments(t *testing.T) {
	tests := map[string]string{
		"truncated json": `{"personalInformation": {`,
		"not an object":  `["a", "b"]`,
		"null arguments": `null`,
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			e := newExtractor(t, &fakeCompleter{result: toolCallResult(FunctionName, args)})
			_, err := e.Extract(context.Background(), "text")
			assert.ErrorIs(t, err, ErrMalformedArguments)
		})
	}
}

func TestExtract_MissingRequiredField(t *testing.T) {
	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(janeArgs), &args))
	delete(args, "ai_generated_roles")
	delete(args, "education")
	data, err := json.Marshal(args)
	require.NoError(t, err)

	e := newExtractor(t, &fakeCompleter{result: toolCallResult(FunctionName, string(data))})
	_, err = e.Extract(context.Background(), "text")

	require.ErrorIs(t, err, ErrMissingRequiredField)
	assert.Contains(t, err.Error(), "ai_generated_roles")
	assert.Contains(t, err.Error(), "education")
}

func TestExtract_GatewayErrorPropagates(t *testing.T) {
	e := newExtractor(t, &fakeCompleter{err: llm.ErrTransient})
	_, err := e.Extract(context.Background(), "text")
	assert.True(t, errors.Is(err, llm.ErrTransient))
}

func TestApplicationSchema_RequiredFields(t *testing.T) {
	schema := ApplicationSchema()
	assert.ElementsMatch(t, RequiredFields, schema.Required)
	for _, f := range append(RequiredFields, "skills", "references") {
		assert.Contains(t, schema.Properties, f)
	}
	refs := schema.Properties["references"].Items
	require.NotNil(t, refs)
	assert.ElementsMatch(t, []string{"name", "relationship", "contact"}, refs.Required)
}
