// Package gemini adapts the Gemini API (google.golang.org/genai) to the llm boundary.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/m2tx/benchagent/internal/llm"
	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/tools"
)

// Gemini may omit function call ids. Ids minted locally carry this prefix and
// are never sent back to the API.
const syntheticIDPrefix = "gemini-call-"

// Model implements llm.Model on top of Models.GenerateContent.
type Model struct {
	client *genai.Client
	model  string
}

// New returns a Gemini-backed model.
func New(client *genai.Client, model string) *Model {
	return &Model{client: client, model: model}
}

func (m *Model) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
	}
	if len(req.Tools) > 0 {
		config.Tools = toGenAITools(req.Tools)
		config.ToolConfig = toToolConfig(req.ToolChoice)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, toGenAIContents(req.Turns), config)
	if err != nil {
		return nil, classifyError("generate content", err)
	}

	return &llm.Response{Turn: fromResponse(resp)}, nil
}

func classifyError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("gemini: %s: %w: %w", op, llm.ErrRateLimited, err)
	}
	return fmt.Errorf("gemini: %s: %w", op, err)
}

func toGenAITools(schemas []tools.Schema) []*genai.Tool {
	functions := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		functions = append(functions, &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.JSONSchema(),
		})
	}

	return []*genai.Tool{
		{
			FunctionDeclarations: functions,
		},
	}
}

func toToolConfig(choice llm.ToolChoice) *genai.ToolConfig {
	mode := genai.FunctionCallingConfigModeAuto
	switch choice {
	case llm.ToolChoiceRequired:
		mode = genai.FunctionCallingConfigModeAny
	case llm.ToolChoiceNone:
		mode = genai.FunctionCallingConfigModeNone
	}
	return &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
	}
}

// toGenAIContents converts the conversation into Gemini contents. Consecutive
// tool turns are merged into one user content, as Gemini expects all function
// responses of a batch together.
func toGenAIContents(turns []model.Turn) []*genai.Content {
	result := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case model.RoleSystem:
			continue
		case model.RoleTool:
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       realID(t.ToolCallID),
					Name:     t.Name,
					Response: map[string]any{"output": t.Content},
				},
			}
			if n := len(result); n > 0 && isFunctionResponseContent(result[n-1]) {
				result[n-1].Parts = append(result[n-1].Parts, part)
				continue
			}
			result = append(result, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{part}})
		case model.RoleAssistant:
			gc := &genai.Content{Role: string(genai.RoleModel)}
			if t.Content != "" {
				gc.Parts = append(gc.Parts, &genai.Part{Text: t.Content})
			}
			for _, call := range t.ToolCalls {
				gc.Parts = append(gc.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   realID(call.ID),
						Name: call.Name,
						Args: decodeArgs(call.Arguments),
					},
				})
			}
			result = append(result, gc)
		default:
			result = append(result, &genai.Content{
				Role:  string(genai.RoleUser),
				Parts: []*genai.Part{{Text: t.Content}},
			})
		}
	}
	return result
}

func isFunctionResponseContent(c *genai.Content) bool {
	if c.Role != string(genai.RoleUser) || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

// fromResponse converts the first candidate with content into an assistant turn.
func fromResponse(resp *genai.GenerateContentResponse) *model.Turn {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		turn := &model.Turn{Role: model.RoleAssistant}
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				id := part.FunctionCall.ID
				if id == "" {
					id = syntheticIDPrefix + uuid.New().String()
				}
				turn.ToolCalls = append(turn.ToolCalls, model.ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: encodeArgs(part.FunctionCall.Args),
				})
			case part.Thought:
				continue
			case part.Text != "":
				text.WriteString(part.Text)
			}
		}
		turn.Content = text.String()
		return turn
	}
	return nil
}

func realID(id string) string {
	if strings.HasPrefix(id, syntheticIDPrefix) {
		return ""
	}
	return id
}

func decodeArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Warnf("gemini: dropping undecodable tool arguments: %v", err)
		return nil
	}
	return args
}

func encodeArgs(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
