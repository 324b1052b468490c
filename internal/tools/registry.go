// Package tools holds the tools the model may call during a turn.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

var tracer = otel.Tracer("github.com/set-night/mindchat/internal/tools")

// Emitter publishes intermediate data events while a tool runs.
type Emitter interface {
	Emit(ctx context.Context, ev domain.Event) error
}

// Env is what a tool knows about the turn it runs in.
type Env struct {
	Session domain.Session
	ChatID  uuid.UUID
	Emitter Emitter
}

func (e Env) emit(ctx context.Context, ev domain.Event) error {
	if e.Emitter == nil {
		return nil
	}
	return e.Emitter.Emit(ctx, ev)
}

type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	// Execute returns a JSON-serializable output.
	Execute(ctx context.Context, env Env, input json.RawMessage) (any, error)
}

// Registry maps tool names to tools, keeping registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := r.tools[t.Name()]; ok {
			continue
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Only returns a registry restricted to the named tools. Unknown names are ignored.
func (r *Registry) Only(names []string) *Registry {
	var picked []Tool
	for _, n := range names {
		if t, ok := r.tools[n]; ok {
			picked = append(picked, t)
		}
	}
	return NewRegistry(picked...)
}

func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return specs
}

// Execute runs one tool call and returns its tool-result part. Tool failures
// are reported inside the part; the returned error is set only when ctx is done.
func (r *Registry) Execute(ctx context.Context, env Env, call llm.ToolCall) (domain.Part, error) {
	ctx, span := tracer.Start(ctx, "tool."+call.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.call_id", call.ID),
		attribute.String("chat.id", env.ChatID.String()),
	)

	part := domain.Part{
		Type:       domain.PartToolResult,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}

	output, err := r.run(ctx, env, call)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return part, ctxErr
	}
	if err == nil {
		var raw []byte
		raw, err = json.Marshal(output)
		if err == nil {
			part.Output = raw
			return part, nil
		}
		err = fmt.Errorf("encode output: %w", err)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Warn("tool call failed", "tool", call.Name, "call_id", call.ID, "error", err)
	part.ErrorText = err.Error()
	return part, nil
}

func (r *Registry) run(ctx context.Context, env Env, call llm.ToolCall) (output any, err error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return nil, fmt.Errorf("tool %q is not available", call.Name)
	}

	input := call.Arguments
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if !json.Valid(input) {
		return nil, errors.New("tool input is not valid JSON")
	}

	defer func() {
		if rec := recover(); rec != nil {
			output = nil
			err = fmt.Errorf("tool %s panicked: %v", call.Name, rec)
		}
	}()
	return t.Execute(ctx, env, input)
}

// decodeInput unmarshals tool input into v.
func decodeInput(input json.RawMessage, v any) error {
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
