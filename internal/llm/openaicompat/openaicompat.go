// Package openaicompat adapts OpenAI-compatible chat completion APIs
// (OpenAI, Mistral, DeepSeek, local gateways) to the llm boundary.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/m2tx/benchagent/internal/llm"
	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/tools"
)

// Options configures the client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Ids minted for tool calls the provider left without one. They must be unique
// across the whole conversation, not just within one response.
const autoCallIDPrefix = "auto_call_"

// Model implements llm.Model with the Chat Completions endpoint.
type Model struct {
	client openai.Client
	model  string
}

// New builds a model client. Client-side retries are disabled: retry policy
// belongs to llm.WithRetry.
func New(opts Options) *Model {
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithHTTPClient(&http.Client{Timeout: opts.Timeout}))
	}

	return &Model{
		client: openai.NewClient(clientOpts...),
		model:  opts.Model,
	}
}

func (m *Model) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: convertMessages(req.System, req.Turns),
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
		choice := req.ToolChoice
		if choice == "" {
			choice = llm.ToolChoiceAuto
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(choice)),
		}
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("openai: chat completion: %w: %w", llm.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}

	return &llm.Response{Turn: fromCompletion(completion)}, nil
}

func convertMessages(system string, turns []model.Turn) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, t := range turns {
		switch t.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(t.Content))
		case model.RoleAssistant:
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if t.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(t.Content),
				}
			}
			for _, call := range t.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case model.RoleTool:
			result = append(result, openai.ToolMessage(t.Content, t.ToolCallID))
		default:
			result = append(result, openai.UserMessage(t.Content))
		}
	}

	return result
}

func convertTools(schemas []tools.Schema) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, 0, len(schemas))
	for _, s := range schemas {
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters:  shared.FunctionParameters(s.JSONSchema()),
			},
		})
	}
	return result
}

func fromCompletion(completion *openai.ChatCompletion) *model.Turn {
	if completion == nil || len(completion.Choices) == 0 {
		return nil
	}

	msg := completion.Choices[0].Message
	turn := &model.Turn{
		Role:    model.RoleAssistant,
		Content: msg.Content,
	}
	for _, call := range msg.ToolCalls {
		id := call.ID
		if id == "" {
			id = autoCallIDPrefix + uuid.NewString()
		}
		turn.ToolCalls = append(turn.ToolCalls, model.ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return turn
}
