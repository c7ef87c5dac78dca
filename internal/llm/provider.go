package llm

import (
	"context"
	"errors"
)

// Completer is the narrow chat completion capability the résumé steps use.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

var (
	// ErrAuthExpired means the endpoint rejected the current credential.
	ErrAuthExpired = errors.New("llm credential rejected")
	// ErrTransient marks failures worth retrying (throttling, 5xx, network).
	ErrTransient = errors.New("llm transient failure")
	// ErrPermanent marks failures that will not succeed on retry.
	ErrPermanent = errors.New("llm permanent failure")
)

// Roles accepted in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool declares a function the model may call. Parameters is a JSON schema value.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// ChatRequest is the input for chat completions. Zero MaxTokens and nil
// Temperature fall back to the gateway defaults. A non-empty ToolChoice forces
// a call to the named tool.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
}

// Temperature is a helper for building a ChatRequest literal.
func Temperature(t float32) *float32 { return &t }

// FunctionCall is the name and raw JSON arguments of a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type ResultMessage struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ResultMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChatResult is the provider-neutral completion result. Usage is empty,
// never nil, when the provider reported no token counts.
type ChatResult struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Created int64          `json:"created"`
	Choices []Choice       `json:"choices"`
	Usage   map[string]int `json:"usage"`
}

// FirstMessage returns the message of the first choice.
func (r *ChatResult) FirstMessage() (ResultMessage, bool) {
	if r == nil || len(r.Choices) == 0 {
		return ResultMessage{}, false
	}
	return r.Choices[0].Message, true
}

// Content returns the text of the first choice, or "" when there is none.
func (r *ChatResult) Content() string {
	msg, ok := r.FirstMessage()
	if !ok || msg.Content == nil {
		return ""
	}
	return *msg.Content
}
