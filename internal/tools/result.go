package tools

import (
	"encoding/json"
	"fmt"

	"github.com/m2tx/benchagent/internal/model"
)

// FailureKind classifies why a tool call produced no output.
type FailureKind string

const (
	FailureUnknownTool      FailureKind = "UnknownTool"
	FailureInvalidArguments FailureKind = "InvalidArguments"
	FailureExecution        FailureKind = "ExecutionFailed"
)

// Failure describes a tool call that did not succeed.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Tool    string      `json:"tool"`
	Message string      `json:"error"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Tool, f.Message)
}

// Result is the outcome of one dispatched call: exactly one of Output or Failure is meaningful.
type Result struct {
	CallID  string
	Name    string
	Output  any
	Failure *Failure
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Content renders the result as the text of a tool turn.
func (r Result) Content() string {
	if r.Failure != nil {
		b, err := json.Marshal(r.Failure)
		if err != nil {
			return r.Failure.Error()
		}
		return string(b)
	}

	switch v := r.Output.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}

	b, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Sprintf("%v", r.Output)
	}
	return string(b)
}

// Turn converts the result into the tool turn answering its call.
func (r Result) Turn() model.Turn {
	return model.Turn{
		Role:       model.RoleTool,
		Content:    r.Content(),
		ToolCallID: r.CallID,
		Name:       r.Name,
	}
}

func failure(call model.ToolCall, kind FailureKind, msg string) Result {
	return Result{
		CallID:  call.ID,
		Name:    call.Name,
		Failure: &Failure{Kind: kind, Tool: call.Name, Message: msg},
	}
}
