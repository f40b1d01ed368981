package agent

import (
	"errors"
	"fmt"

	"github.com/m2tx/benchagent/internal/model"
)

var (
	ErrDuplicateCallID = errors.New("agent: duplicate tool call id")
	ErrMissingCallID   = errors.New("agent: tool call without id")
	ErrUnknownCallID   = errors.New("agent: tool result does not answer a pending call")
	ErrPendingCalls    = errors.New("agent: tool calls left unanswered")
)

// Conversation is the append-only turn history of one run. The first turn is
// always the system turn.
type Conversation struct {
	turns   []model.Turn
	seen    map[string]struct{}
	pending []string
	steps   int
}

// NewConversation seeds the history with the system and user turns.
func NewConversation(system, user string) *Conversation {
	return &Conversation{
		turns: []model.Turn{
			{Role: model.RoleSystem, Content: system},
			{Role: model.RoleUser, Content: user},
		},
		seen: make(map[string]struct{}),
	}
}

// AppendAssistant records a model turn and marks its tool calls as pending.
func (c *Conversation) AppendAssistant(turn model.Turn) error {
	if len(c.pending) > 0 {
		return fmt.Errorf("%w: %v", ErrPendingCalls, c.pending)
	}

	ids := make(map[string]struct{}, len(turn.ToolCalls))
	for _, call := range turn.ToolCalls {
		if call.ID == "" {
			return fmt.Errorf("%w: %q", ErrMissingCallID, call.Name)
		}
		_, dupInTurn := ids[call.ID]
		_, dupEarlier := c.seen[call.ID]
		if dupInTurn || dupEarlier {
			return fmt.Errorf("%w: %q", ErrDuplicateCallID, call.ID)
		}
		ids[call.ID] = struct{}{}
	}

	turn.Role = model.RoleAssistant
	turn.ToolCalls = append([]model.ToolCall(nil), turn.ToolCalls...)
	c.turns = append(c.turns, turn)
	for _, call := range turn.ToolCalls {
		c.seen[call.ID] = struct{}{}
		c.pending = append(c.pending, call.ID)
	}
	return nil
}

// AppendToolResult records the answer to the oldest pending call. Results
// must arrive in request order.
func (c *Conversation) AppendToolResult(turn model.Turn) error {
	if len(c.pending) == 0 || c.pending[0] != turn.ToolCallID {
		return fmt.Errorf("%w: %q", ErrUnknownCallID, turn.ToolCallID)
	}

	turn.Role = model.RoleTool
	c.turns = append(c.turns, turn)
	c.pending = c.pending[1:]
	return nil
}

// AppendUser records a user turn. It is rejected while calls are pending.
func (c *Conversation) AppendUser(content string) error {
	if len(c.pending) > 0 {
		return fmt.Errorf("%w: %v", ErrPendingCalls, c.pending)
	}
	c.turns = append(c.turns, model.Turn{Role: model.RoleUser, Content: content})
	return nil
}

// Pending lists the ids of calls still waiting for a tool turn, in request order.
func (c *Conversation) Pending() []string {
	return append([]string(nil), c.pending...)
}

// Turns returns a copy of the full history including the system turn.
func (c *Conversation) Turns() []model.Turn {
	return model.CloneTurns(c.turns)
}

// System returns the instructions of the system turn.
func (c *Conversation) System() string {
	return c.turns[0].Content
}

// Exchange returns the history after the system turn, as sent to the model.
func (c *Conversation) Exchange() []model.Turn {
	return model.CloneTurns(c.turns[1:])
}

// Steps counts model round-trips started so far.
func (c *Conversation) Steps() int {
	return c.steps
}

func (c *Conversation) step() {
	c.steps++
}
