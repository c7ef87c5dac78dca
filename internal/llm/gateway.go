package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nikhilbhutani/resumeprocessor/internal/config"
	"github.com/nikhilbhutani/resumeprocessor/internal/retry"
)

// Gateway sends chat completions to a single deployment. It owns one lazily
// created session that is rebuilt once per call when the credential expires.
type Gateway struct {
	deployment  string
	temperature float32
	maxTokens   int
	credential  Credential
	newSession  SessionFactory
	policy      retry.Policy

	mu         sync.Mutex
	session    ChatSession
	generation uint64
}

type Option func(*Gateway)

// WithSessionFactory replaces the go-openai Azure client factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(g *Gateway) { g.newSession = f }
}

// WithRetryPolicy overrides the bounded retry applied to every call.
func WithRetryPolicy(p retry.Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

func NewGateway(cfg config.LLMConfig, cred Credential, opts ...Option) *Gateway {
	g := &Gateway{
		deployment:  cfg.Deployment,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		credential:  cred,
		newSession:  AzureSessionFactory(cfg),
		policy:      retry.LLMPolicy(),
	}
	if cfg.MaxRetries > 0 {
		g.policy.Attempts = cfg.MaxRetries
	}
	for _, opt := range opts {
		opt(g)
	}
	g.policy.Retryable = isRetryable
	return g
}

// Complete sends req and returns the normalized result. Transient failures are
// retried with backoff; a rejected credential is refreshed and the request
// resent once before the failure is surfaced.
func (g *Gateway) Complete(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if req.Temperature == nil {
		req.Temperature = Temperature(g.temperature)
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.maxTokens
	}

	toolNames := make([]string, len(req.Tools))
	for i, t := range req.Tools {
		toolNames[i] = t.Name
	}
	slog.Info("llm request start",
		"deployment", g.deployment,
		"message_count", len(req.Messages),
		"has_tools", len(req.Tools) > 0,
		"tool_count", len(req.Tools),
		"tool_names", toolNames,
		"tool_choice", req.ToolChoice,
	)

	start := time.Now()
	var result *ChatResult
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		res, err := g.completeOnce(ctx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	duration := time.Since(start).Milliseconds()
	if err != nil {
		slog.Error("llm request failed", "deployment", g.deployment, "duration_ms", duration, "error", err)
		return nil, err
	}

	var calledTools []string
	finishReason := ""
	if len(result.Choices) > 0 {
		finishReason = result.Choices[0].FinishReason
		for _, tc := range result.Choices[0].Message.ToolCalls {
			calledTools = append(calledTools, tc.Function.Name)
		}
	}
	slog.Info("llm response complete",
		"deployment", g.deployment,
		"duration_ms", duration,
		"has_tool_calls", len(calledTools) > 0,
		"tool_call_count", len(calledTools),
		"called_tools", calledTools,
		"finish_reason", finishReason,
		"total_tokens", result.Usage["total_tokens"],
		"cost_usd", CalculateCost(result.Model, result.Usage["prompt_tokens"], result.Usage["completion_tokens"]),
	)
	return result, nil
}

func (g *Gateway) completeOnce(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	sess, gen, err := g.current(ctx)
	if err != nil {
		return nil, err
	}

	oReq := toOpenAIRequest(req, g.deployment)
	resp, err := sess.CreateChatCompletion(ctx, oReq)
	if err == nil {
		return fromOpenAIResponse(resp), nil
	}
	err = classifyError(err)
	if !errors.Is(err, ErrAuthExpired) {
		return nil, err
	}

	slog.Warn("llm credential rejected, refreshing session", "deployment", g.deployment)
	sess, err = g.refresh(ctx, gen)
	if err != nil {
		return nil, err
	}
	resp, err = sess.CreateChatCompletion(ctx, oReq)
	if err != nil {
		err = classifyError(err)
		if errors.Is(err, ErrAuthExpired) {
			return nil, fmt.Errorf("%w: rejected after refresh: %w", ErrPermanent, err)
		}
		return nil, err
	}
	return fromOpenAIResponse(resp), nil
}

// current returns the live session, creating it on first use.
func (g *Gateway) current(ctx context.Context) (ChatSession, uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil {
		return g.session, g.generation, nil
	}
	if err := g.rebuildLocked(ctx, false); err != nil {
		return nil, 0, err
	}
	return g.session, g.generation, nil
}

// refresh replaces the session observed at generation seen. Callers that lose
// the race reuse the session another caller already rebuilt.
func (g *Gateway) refresh(ctx context.Context, seen uint64) (ChatSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil && g.generation != seen {
		return g.session, nil
	}
	g.session = nil
	if err := g.rebuildLocked(ctx, true); err != nil {
		return nil, err
	}
	return g.session, nil
}

func (g *Gateway) rebuildLocked(ctx context.Context, force bool) error {
	secret, err := g.credential.Token(ctx, force)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	sess, err := g.newSession(secret, g.credential.Bearer())
	if err != nil {
		return fmt.Errorf("%w: create session: %w", ErrPermanent, err)
	}
	g.session = sess
	g.generation++
	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrPermanent) {
		return false
	}
	return retry.DefaultRetryable(err)
}
