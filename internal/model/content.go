package model

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall represents a tool invocation requested by the model.
// Arguments holds the JSON-encoded argument object exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	Arguments string `json:"arguments" bson:"arguments"`
}

// Turn is a single message of a conversation.
type Turn struct {
	Role      Role       `json:"role" bson:"role"`
	Content   string     `json:"content" bson:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	// ToolCallID links a tool turn back to the assistant request it answers.
	ToolCallID string `json:"tool_call_id,omitempty" bson:"tool_call_id,omitempty"`
	// Name is the tool name on tool turns.
	Name string `json:"name,omitempty" bson:"name,omitempty"`
}

// HasToolCalls reports whether the turn requests at least one tool invocation.
func (t Turn) HasToolCalls() bool {
	return len(t.ToolCalls) > 0
}

// Transcript is the persisted audit record of one task.
type Transcript struct {
	TaskID        string    `json:"task_id" bson:"_id"`
	Turns         []Turn    `json:"turns" bson:"turns"`
	CorrectAnswer string    `json:"Correct Answer" bson:"correct_answer"`
	FinalAnswer   *string   `json:"Final Answer" bson:"final_answer"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// CloneTurns returns a deep copy of turns so callers never share tool-call slices.
func CloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t
		if t.ToolCalls != nil {
			out[i].ToolCalls = append([]ToolCall(nil), t.ToolCalls...)
		}
	}
	return out
}
