package functions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/tools"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		op      string
		a, b    float64
		hasB    bool
		want    float64
		wantErr string
	}{
		{op: "add", a: 2, b: 3, hasB: true, want: 5},
		{op: "subtract", a: 2, b: 3, hasB: true, want: -1},
		{op: "multiply", a: 2, b: 3, hasB: true, want: 6},
		{op: "divide", a: 3, b: 2, hasB: true, want: 1.5},
		{op: "power", a: 2, b: 10, hasB: true, want: 1024},
		{op: "sqrt", a: 81, want: 9},
		{op: "cos", a: 0, want: 1},
		{op: "add", a: 1, wantErr: "second number is required for addition"},
		{op: "divide", a: 1, b: 0, hasB: true, wantErr: "cannot divide by zero"},
		{op: "sqrt", a: -1, wantErr: "negative"},
		{op: "modulo", a: 1, b: 1, hasB: true, wantErr: "unsupported operation: modulo"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := calculate(tt.op, tt.a, tt.b, tt.hasB)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculatorThroughRegistry(t *testing.T) {
	registry, err := tools.New([]*tools.FunctionDeclaration{CreateCalculatorFunctionDeclaration()})
	require.NoError(t, err)

	res := registry.Dispatch(context.Background(), model.ToolCall{ID: "1", Name: "calculator", Arguments: `{"operation":"multiply","a":6,"b":7}`})
	require.True(t, res.OK(), res.Content())
	assert.Equal(t, "42", res.Content())

	res = registry.Dispatch(context.Background(), model.ToolCall{ID: "2", Name: "calculator", Arguments: `{"operation":"add","a":"six"}`})
	require.False(t, res.OK())
	assert.Equal(t, tools.FailureInvalidArguments, res.Failure.Kind)
}

func TestReverseText(t *testing.T) {
	decl := CreateReverseTextFunctionDeclaration()
	out, err := decl.Call(context.Background(), map[string]any{"input_text": ".rewsna eht sa \"tfel\" drow eht fo etisoppo eht etirw"})
	require.NoError(t, err)
	assert.Equal(t, "write the opposite of the word \"left\" as the answer.", out)

	assert.Equal(t, "éba", reverse("abé"))

	_, err = decl.Call(context.Background(), map[string]any{"input_text": ""})
	assert.Error(t, err)
}

func TestClassifyFoods(t *testing.T) {
	out := classifyFoods([]string{"Milk", "sweet potatoes", "Oreos", "Broccoli", "plums", "corn", "acorn"})
	assert.Equal(t, "Food classification:\n"+
		"Vegetables: sweet potatoes, Broccoli\n"+
		"Grains: corn\n"+
		"Nuts: acorn\n"+
		"Other: Milk, Oreos\n"+
		"Unknown: plums", out)
}
