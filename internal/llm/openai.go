package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/resumeprocessor/internal/config"
)

// ChatSession is a live client bound to one credential.
type ChatSession interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SessionFactory builds a session from a freshly acquired secret.
type SessionFactory func(secret string, bearer bool) (ChatSession, error)

// AzureSessionFactory returns a factory producing go-openai clients for the
// configured Azure OpenAI resource.
func AzureSessionFactory(cfg config.LLMConfig) SessionFactory {
	return func(secret string, bearer bool) (ChatSession, error) {
		if cfg.Endpoint == "" {
			return nil, errors.New("azure openai endpoint not configured")
		}
		oc := openai.DefaultAzureConfig(secret, cfg.Endpoint)
		if bearer {
			oc.APIType = openai.APITypeAzureAD
		}
		if cfg.APIVersion != "" {
			oc.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		oc.AzureModelMapperFunc = func(string) string { return deployment }
		return openai.NewClientWithConfig(oc), nil
	}
}

func toOpenAIRequest(req ChatRequest, model string) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		oReq.Temperature = *req.Temperature
	}
	for _, t := range req.Tools {
		oReq.Tools = append(oReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.ToolChoice != "" {
		oReq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ToolChoice},
		}
	}
	return oReq
}

func fromOpenAIResponse(resp openai.ChatCompletionResponse) *ChatResult {
	result := &ChatResult{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Choices: make([]Choice, 0, len(resp.Choices)),
		Usage:   map[string]int{},
	}

	for _, c := range resp.Choices {
		msg := ResultMessage{Role: c.Message.Role}
		if c.Message.Content != "" {
			content := c.Message.Content
			msg.Content = &content
		}
		for _, tc := range c.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		result.Choices = append(result.Choices, Choice{
			Index:        c.Index,
			Message:      msg,
			FinishReason: string(c.FinishReason),
		})
	}

	u := resp.Usage
	if u.PromptTokens != 0 || u.CompletionTokens != 0 || u.TotalTokens != 0 {
		result.Usage["prompt_tokens"] = u.PromptTokens
		result.Usage["completion_tokens"] = u.CompletionTokens
		result.Usage["total_tokens"] = u.TotalTokens
	}
	return result
}

// classifyError maps transport errors onto ErrAuthExpired, ErrPermanent or
// ErrTransient using the HTTP status carried by go-openai error types.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrAuthExpired, err)
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		return fmt.Errorf("%w: %w", ErrTransient, err)
	case status >= 400:
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
}
