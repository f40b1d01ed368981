// Package llm defines the completion boundary between the agent and a hosted model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/tools"
)

// ErrRateLimited marks completion failures that may succeed when retried later.
var ErrRateLimited = errors.New("llm: rate limited")

// ToolChoice is the policy the model follows when deciding whether to call tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// Valid reports whether c is a known policy.
func (c ToolChoice) Valid() bool {
	switch c {
	case ToolChoiceAuto, ToolChoiceRequired, ToolChoiceNone:
		return true
	}
	return false
}

// Request is one completion round-trip. Turns never include the system turn;
// providers receive the instructions separately in System.
type Request struct {
	System     string
	Turns      []model.Turn
	Tools      []tools.Schema
	ToolChoice ToolChoice
}

// Response carries the assistant turn of one round-trip. A nil Turn means the
// provider returned no usable choice.
type Response struct {
	Turn *model.Turn
}

// Empty reports whether the response has neither content nor tool calls.
func (r *Response) Empty() bool {
	return r == nil || r.Turn == nil || (r.Turn.Content == "" && !r.Turn.HasToolCalls())
}

// Model is a hosted completion API.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// RetryPolicy retries rate-limited completions with a fixed backoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

type retryModel struct {
	next   Model
	policy RetryPolicy
}

// WithRetry wraps m so that ErrRateLimited failures are retried per policy.
// A zero policy returns m unchanged.
func WithRetry(m Model, policy RetryPolicy) Model {
	if policy.MaxRetries <= 0 {
		return m
	}
	return &retryModel{next: m, policy: policy}
}

func (r *retryModel) Complete(ctx context.Context, req Request) (*Response, error) {
	var err error
	for attempt := 0; ; attempt++ {
		var resp *Response
		resp, err = r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= r.policy.MaxRetries {
			break
		}

		log.Warnf("llm: rate limited, retrying in %s (attempt %d/%d)", r.policy.Backoff, attempt+1, r.policy.MaxRetries)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm: retry aborted: %w", ctx.Err())
		case <-time.After(r.policy.Backoff):
		}
	}
	return nil, err
}
