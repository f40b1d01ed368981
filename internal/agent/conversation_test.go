package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/model"
)

func TestConversationToolCallBookkeeping(t *testing.T) {
	c := NewConversation("sys", "question")
	assert.Equal(t, "sys", c.System())
	assert.Len(t, c.Exchange(), 1)

	require.NoError(t, c.AppendAssistant(model.Turn{ToolCalls: []model.ToolCall{
		{ID: "a", Name: "x"},
		{ID: "b", Name: "y"},
	}}))
	assert.Equal(t, []string{"a", "b"}, c.Pending())

	assert.ErrorIs(t, c.AppendUser("hi"), ErrPendingCalls)
	assert.ErrorIs(t, c.AppendAssistant(model.Turn{Content: "early"}), ErrPendingCalls)
	assert.ErrorIs(t, c.AppendToolResult(model.Turn{ToolCallID: "b"}), ErrUnknownCallID)

	require.NoError(t, c.AppendToolResult(model.Turn{ToolCallID: "a", Content: "1"}))
	require.NoError(t, c.AppendToolResult(model.Turn{ToolCallID: "b", Content: "2"}))
	assert.Empty(t, c.Pending())
	assert.ErrorIs(t, c.AppendToolResult(model.Turn{ToolCallID: "a"}), ErrUnknownCallID)

	assert.ErrorIs(t, c.AppendAssistant(model.Turn{ToolCalls: []model.ToolCall{{ID: "a"}}}), ErrDuplicateCallID)
	assert.ErrorIs(t, c.AppendAssistant(model.Turn{ToolCalls: []model.ToolCall{{Name: "x"}}}), ErrMissingCallID)

	turns := c.Turns()
	require.Len(t, turns, 5)
	assert.Equal(t, model.RoleAssistant, turns[2].Role)
	assert.Equal(t, model.RoleTool, turns[3].Role)
}

func TestConversationTurnsAreCopies(t *testing.T) {
	c := NewConversation("sys", "q")
	require.NoError(t, c.AppendAssistant(model.Turn{ToolCalls: []model.ToolCall{{ID: "a", Name: "x"}}}))

	turns := c.Turns()
	turns[2].ToolCalls[0].Name = "mutated"
	assert.Equal(t, "x", c.Turns()[2].ToolCalls[0].Name)
}
