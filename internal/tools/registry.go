// Package tools exposes agent tools to the model and dispatches requested calls.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/model"
)

var (
	ErrNilDeclaration  = errors.New("tool declaration cannot be nil")
	ErrEmptyName       = errors.New("tool name cannot be empty")
	ErrNilFunction     = errors.New("tool implementation cannot be nil")
	ErrDuplicateTool   = errors.New("tool is already registered")
	ErrInvalidParamDef = errors.New("invalid parameter definition")
)

// FunctionCallFn executes a tool with validated arguments. The returned value
// must be a string or a JSON-serializable value.
type FunctionCallFn func(ctx context.Context, args map[string]any) (any, error)

// FunctionDeclaration describes one tool and carries its implementation.
type FunctionDeclaration struct {
	Name        string
	Description string
	Parameters  []Parameter
	Call        FunctionCallFn
}

// Registry is the closed set of tools available to one agent. It is immutable
// after New and safe for concurrent use.
type Registry struct {
	decls   []*FunctionDeclaration
	byName  map[string]*FunctionDeclaration
	schemas []Schema
	timeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds every tool call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// New validates the declarations and builds the registry.
func New(decls []*FunctionDeclaration, opts ...Option) (*Registry, error) {
	r := &Registry{byName: make(map[string]*FunctionDeclaration, len(decls))}
	for _, opt := range opts {
		opt(r)
	}

	for _, fd := range decls {
		if err := validateDeclaration(fd); err != nil {
			return nil, err
		}
		if _, exists := r.byName[fd.Name]; exists {
			return nil, fmt.Errorf("tools: %w: %q", ErrDuplicateTool, fd.Name)
		}
		r.byName[fd.Name] = fd
		r.decls = append(r.decls, fd)
		r.schemas = append(r.schemas, newSchema(fd))
	}

	return r, nil
}

func validateDeclaration(fd *FunctionDeclaration) error {
	if fd == nil {
		return fmt.Errorf("tools: %w", ErrNilDeclaration)
	}
	if strings.TrimSpace(fd.Name) == "" {
		return fmt.Errorf("tools: %w", ErrEmptyName)
	}
	if fd.Call == nil {
		return fmt.Errorf("tools: %w: %q", ErrNilFunction, fd.Name)
	}

	seen := make(map[string]struct{}, len(fd.Parameters))
	for _, p := range fd.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tools: %w: %q has an unnamed parameter", ErrInvalidParamDef, fd.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("tools: %w: %q declares %q twice", ErrInvalidParamDef, fd.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if !p.Type.valid() {
			return fmt.Errorf("tools: %w: %q.%s has unknown type %q", ErrInvalidParamDef, fd.Name, p.Name, p.Type)
		}
		if p.Type == TypeArray && p.Items != "" && !p.Items.valid() {
			return fmt.Errorf("tools: %w: %q.%s has unknown item type %q", ErrInvalidParamDef, fd.Name, p.Name, p.Items)
		}
	}
	return nil
}

// Describe returns the model-facing schemas in registration order. The slice
// is the same for every call.
func (r *Registry) Describe() []Schema {
	return r.schemas
}

// Names lists registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.decls))
	for _, fd := range r.decls {
		names = append(names, fd.Name)
	}
	return names
}

// Catalog renders a plain-text listing of the tools for the system turn.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, s := range r.schemas {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		for _, p := range s.Parameters {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s)", p.Name, p.Type, req)
			if p.Description != "" {
				fmt.Fprintf(&b, ": %s", p.Description)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Dispatch runs one requested call. It never returns an error: every fault is
// folded into the Result so it can be fed back to the model.
func (r *Registry) Dispatch(ctx context.Context, call model.ToolCall) Result {
	fd, ok := r.byName[call.Name]
	if !ok {
		return failure(call, FailureUnknownTool, fmt.Sprintf("tool %q is not registered", call.Name))
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return failure(call, FailureInvalidArguments, err.Error())
	}
	if err := checkArguments(fd.Parameters, args); err != nil {
		return failure(call, FailureInvalidArguments, err.Error())
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := invoke(ctx, fd, args)
	if err != nil {
		log.Infof("tool %s (%s) failed after %s: %v", call.Name, call.ID, time.Since(start), err)
		return failure(call, FailureExecution, err.Error())
	}
	log.Infof("tool %s (%s) succeeded in %s", call.Name, call.ID, time.Since(start))

	return Result{CallID: call.ID, Name: call.Name, Output: out}
}

func invoke(ctx context.Context, fd *FunctionDeclaration, args map[string]any) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("tool %s panicked: %v\n%s", fd.Name, rec, debug.Stack())
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return fd.Call(ctx, args)
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %v", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
