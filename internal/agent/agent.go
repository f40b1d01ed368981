// Package agent drives the tool-calling conversation that answers one task.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m2tx/benchagent/internal/answer"
	"github.com/m2tx/benchagent/internal/llm"
	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/model"
	"github.com/m2tx/benchagent/internal/repository"
	"github.com/m2tx/benchagent/internal/tools"
)

const (
	DefaultMaxSteps = 10

	// NoFinalAnswer is returned when the step budget runs out.
	NoFinalAnswer = "no final answer found"
	// ProtocolErrorAnswer is returned when the model breaks the turn protocol.
	ProtocolErrorAnswer = "no final answer: malformed model response"

	reminder = "Your last reply has no tool call and no final answer. " +
		"Continue, and finish with the template: " + answer.Marker + " [YOUR FINAL ANSWER]"

	persistTimeout = 10 * time.Second
)

var (
	// ErrModelCall wraps completion API failures. It is fatal for the task.
	ErrModelCall     = errors.New("agent: model call failed")
	ErrEmptyQuestion = errors.New("agent: question is empty")
)

// State is a node of the run state machine.
type State string

const (
	StateAwaitingModel         State = "AWAITING_MODEL"
	StateDispatchingTools      State = "DISPATCHING_TOOLS"
	StateTerminatedSuccess     State = "TERMINATED_SUCCESS"
	StateTerminatedExhausted   State = "TERMINATED_EXHAUSTED"
	StateTerminatedProtocolErr State = "TERMINATED_PROTOCOL_ERROR"
)

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateTerminatedSuccess, StateTerminatedExhausted, StateTerminatedProtocolErr:
		return true
	}
	return false
}

// Task is one question to answer.
type Task struct {
	ID       string `json:"task_id"`
	Question string `json:"question"`
	// FilePath is the local path of the attachment, if any.
	FilePath string `json:"file_path,omitempty"`
	// CorrectAnswer is the ground truth, recorded in the transcript only.
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Result is the outcome of a run that reached a terminal state.
type Result struct {
	TaskID           string       `json:"task_id"`
	State            State        `json:"state"`
	Answer           string       `json:"answer"`
	Valid            bool         `json:"valid"`
	ValidationReason string       `json:"validation_reason,omitempty"`
	ProtocolError    string       `json:"protocol_error,omitempty"`
	Steps            int          `json:"steps"`
	Turns            []model.Turn `json:"turns"`
}

// Placeholder renders the answer recorded for a task whose run failed.
func Placeholder(err error) string {
	return fmt.Sprintf("AGENT ERROR: %v", err)
}

// Agent answers tasks with a model and a fixed tool registry. It holds no
// per-run state and may serve concurrent runs.
type Agent struct {
	model                llm.Model
	registry             *tools.Registry
	systemInstruction    string
	maxSteps             int
	toolChoice           llm.ToolChoice
	modelTimeout         time.Duration
	transcriptRepository repository.TranscriptRepository
}

// Option configures an Agent.
type Option func(*Agent)

func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

func WithToolChoice(c llm.ToolChoice) Option {
	return func(a *Agent) {
		if c.Valid() {
			a.toolChoice = c
		}
	}
}

// WithModelTimeout bounds every model round-trip. Zero disables the bound.
func WithModelTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.modelTimeout = d
	}
}

func WithRepository(r repository.TranscriptRepository) Option {
	return func(a *Agent) {
		a.transcriptRepository = r
	}
}

func New(m llm.Model, registry *tools.Registry, systemInstruction string, opts ...Option) *Agent {
	a := &Agent{
		model:             m,
		registry:          registry,
		systemInstruction: systemInstruction,
		maxSteps:          DefaultMaxSteps,
		toolChoice:        llm.ToolChoiceAuto,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tools lists the names of the tools offered to the model.
func (a *Agent) Tools() []string {
	if a.registry == nil {
		return nil
	}
	return a.registry.Names()
}

// Run answers task. Tool failures and protocol violations end in a Result;
// only model call failures (ErrModelCall) and invalid input return an error.
func (a *Agent) Run(ctx context.Context, task Task) (*Result, error) {
	if strings.TrimSpace(task.Question) == "" {
		return nil, ErrEmptyQuestion
	}

	conv := NewConversation(a.systemTurn(), userTurn(task))
	state := StateAwaitingModel
	var final, protocolErr string

	for !state.Terminal() {
		if conv.Steps() >= a.maxSteps {
			state = StateTerminatedExhausted
			break
		}
		if pending := conv.Pending(); len(pending) > 0 {
			protocolErr = fmt.Sprintf("%v: %v", ErrPendingCalls, pending)
			state = StateTerminatedProtocolErr
			break
		}

		conv.step()
		log.Debugf("agent: task %s round %d/%d", task.ID, conv.Steps(), a.maxSteps)

		resp, err := a.complete(ctx, conv)
		if err != nil {
			a.persist(ctx, task, conv, nil)
			return nil, fmt.Errorf("%w: task %s round %d: %w", ErrModelCall, task.ID, conv.Steps(), err)
		}
		if resp.Empty() {
			protocolErr = "model returned no content and no tool calls"
			state = StateTerminatedProtocolErr
			break
		}

		turn := *resp.Turn
		if err := conv.AppendAssistant(turn); err != nil {
			protocolErr = err.Error()
			state = StateTerminatedProtocolErr
			break
		}

		if turn.HasToolCalls() {
			state = StateDispatchingTools
			if err := a.dispatch(ctx, conv, turn.ToolCalls); err != nil {
				protocolErr = err.Error()
				state = StateTerminatedProtocolErr
				break
			}
			a.persist(ctx, task, conv, nil)
			state = StateAwaitingModel
			continue
		}

		if extracted, ok := answer.Extract(turn.Content); ok {
			final = extracted
			state = StateTerminatedSuccess
			break
		}

		if err := conv.AppendUser(reminder); err != nil {
			protocolErr = err.Error()
			state = StateTerminatedProtocolErr
		}
	}

	result := &Result{
		TaskID:        task.ID,
		State:         state,
		ProtocolError: protocolErr,
		Steps:         conv.Steps(),
	}

	switch state {
	case StateTerminatedSuccess:
		result.Answer = final
		result.Valid, result.ValidationReason = answer.Validate(answer.Suffixed(final))
		if !result.Valid {
			log.Warnf("agent: task %s answer %q failed validation: %s", task.ID, final, result.ValidationReason)
		}
		a.persist(ctx, task, conv, &final)
	case StateTerminatedExhausted:
		result.Answer = NoFinalAnswer
		log.Warnf("agent: task %s exhausted %d rounds without a final answer", task.ID, a.maxSteps)
		a.persist(ctx, task, conv, nil)
	default:
		result.Answer = ProtocolErrorAnswer
		log.Warnf("agent: task %s protocol error: %s", task.ID, protocolErr)
		a.persist(ctx, task, conv, nil)
	}

	result.Turns = conv.Turns()
	return result, nil
}

func (a *Agent) complete(ctx context.Context, conv *Conversation) (*llm.Response, error) {
	if a.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
		defer cancel()
	}

	req := llm.Request{
		System:     conv.System(),
		Turns:      conv.Exchange(),
		ToolChoice: a.toolChoice,
	}
	if a.registry != nil {
		req.Tools = a.registry.Describe()
	}

	start := time.Now()
	resp, err := a.model.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Debugf("agent: model responded in %s", time.Since(start))
	return resp, nil
}

// dispatch resolves calls sequentially in request order.
func (a *Agent) dispatch(ctx context.Context, conv *Conversation, calls []model.ToolCall) error {
	for _, call := range calls {
		var result tools.Result
		if a.registry == nil {
			result = tools.Result{
				CallID:  call.ID,
				Name:    call.Name,
				Failure: &tools.Failure{Kind: tools.FailureUnknownTool, Tool: call.Name, Message: "no tools are registered"},
			}
		} else {
			result = a.registry.Dispatch(ctx, call)
		}
		if err := conv.AppendToolResult(result.Turn()); err != nil {
			return err
		}
	}
	return nil
}

// persist records the transcript. Failures are logged and never affect the run.
func (a *Agent) persist(ctx context.Context, task Task, conv *Conversation, final *string) {
	if a.transcriptRepository == nil || task.ID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	transcript := &model.Transcript{
		TaskID:        task.ID,
		Turns:         conv.Turns(),
		CorrectAnswer: task.CorrectAnswer,
		FinalAnswer:   final,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := a.transcriptRepository.Save(ctx, transcript); err != nil {
		log.Warnf("agent: failed to save transcript %q: %v", task.ID, err)
	}
}

func (a *Agent) systemTurn() string {
	if a.registry == nil || len(a.registry.Describe()) == 0 {
		return a.systemInstruction
	}
	return strings.TrimRight(a.systemInstruction, "\n") + "\n\nYou can use the following tools:\n" + a.registry.Catalog()
}

func userTurn(task Task) string {
	if task.FilePath == "" {
		return task.Question
	}
	return fmt.Sprintf("%s You can access the file here: '%s'.", task.Question, task.FilePath)
}
