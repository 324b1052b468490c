// Package stream drives the model through a turn and frames its output as
// server-sent events.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
	"github.com/set-night/mindchat/internal/tools"
)

// Reconciler turns raw token usage into the summary sent to the client.
type Reconciler interface {
	Reconcile(ctx context.Context, modelID string, raw domain.Usage) domain.UsageSummary
}

type Multiplexer struct {
	gateway    llm.Gateway
	reconciler Reconciler
	maxSteps   int
	delay      time.Duration
	now        func() time.Time
}

func NewMultiplexer(gateway llm.Gateway, reconciler Reconciler, maxSteps int, delay time.Duration) *Multiplexer {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &Multiplexer{
		gateway:    gateway,
		reconciler: reconciler,
		maxSteps:   maxSteps,
		delay:      delay,
		now:        time.Now,
	}
}

// Turn is the input of one multiplexed generation.
type Turn struct {
	ChatID   uuid.UUID
	Model    string
	System   string
	Messages []llm.Message
	Tools    *tools.Registry
	Env      tools.Env
}

type Result struct {
	// Messages holds the assistant output of the turn, ready to persist.
	Messages     []domain.Message
	Usage        domain.UsageSummary
	Steps        int
	FinishReason string
}

// Run drives the step loop, writing events to sink. On error nothing of the
// turn should be persisted.
func (m *Multiplexer) Run(ctx context.Context, turn Turn, sink Sink) (*Result, error) {
	registry := turn.Tools
	if registry == nil {
		registry = tools.NewRegistry()
	}
	emitter := &sinkEmitter{sink: sink}
	env := turn.Env
	env.ChatID = turn.ChatID
	env.Emitter = emitter

	transcript := append([]llm.Message(nil), turn.Messages...)
	var (
		parts  []domain.Part
		total  domain.Usage
		steps  int
		finish string
	)

	for step := 1; step <= m.maxSteps; step++ {
		steps = step

		out, err := m.runStep(ctx, llm.Request{
			Model:    turn.Model,
			System:   turn.System,
			Messages: transcript,
			Tools:    registry.Specs(),
		}, sink)
		if err != nil {
			return nil, err
		}
		if out.usage != nil {
			total = total.Add(*out.usage)
		}
		if out.reasoning != "" {
			parts = append(parts, domain.ReasoningPart(out.reasoning))
		}
		if out.text != "" {
			parts = append(parts, domain.TextPart(out.text))
		}

		calls := dedupeCalls(out.calls)
		if len(calls) == 0 {
			finish = out.finishReason
			break
		}

		assistant := llm.Message{Role: domain.RoleAssistant, Content: out.text, ToolCalls: calls}
		transcript = append(transcript, assistant)

		for _, call := range calls {
			callPart := domain.Part{
				Type:       domain.PartToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      call.Arguments,
			}
			parts = append(parts, callPart)
			if err := sink.Send(domain.ToolCallEvent{ToolCallID: call.ID, ToolName: call.Name, Input: call.Arguments}); err != nil {
				return nil, err
			}

			result, err := registry.Execute(ctx, env, call)
			if err != nil {
				return nil, err
			}
			if emitter.err != nil {
				return nil, emitter.err
			}

			parts = append(parts, result)
			if err := sink.Send(domain.ToolResultEvent{
				ToolCallID: result.ToolCallID,
				ToolName:   result.ToolName,
				Output:     result.Output,
				ErrorText:  result.ErrorText,
			}); err != nil {
				return nil, err
			}
			transcript = append(transcript, toolMessage(result))
		}

		finish = domain.FinishToolCalls
		if step == m.maxSteps {
			finish = domain.FinishStepLimit
		}
	}
	if finish == "" {
		finish = domain.FinishStop
	}

	usage := m.reconciler.Reconcile(ctx, turn.Model, total)
	if err := sink.Send(domain.DataUsageEvent{Data: usage}); err != nil {
		return nil, err
	}
	if err := sink.Send(domain.FinishEvent{FinishReason: finish, Steps: steps}); err != nil {
		return nil, err
	}

	res := &Result{Usage: usage, Steps: steps, FinishReason: finish}
	if len(parts) > 0 {
		res.Messages = []domain.Message{{
			ID:        uuid.New(),
			ChatID:    turn.ChatID,
			Role:      domain.RoleAssistant,
			Parts:     parts,
			CreatedAt: m.now().UTC(),
		}}
	}
	return res, nil
}

type stepOutput struct {
	text         string
	reasoning    string
	calls        []llm.ToolCall
	usage        *domain.Usage
	finishReason string
}

type received struct {
	chunk llm.Chunk
	err   error
}

// runStep performs one model call, streaming its text through the smoother.
// Reasoning is forwarded as it arrives.
func (m *Multiplexer) runStep(ctx context.Context, req llm.Request, sink Sink) (*stepOutput, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := m.gateway.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	chunks := make(chan received)
	go func() {
		defer close(chunks)
		for {
			c, err := s.Recv()
			select {
			case chunks <- received{chunk: c, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		out         stepOutput
		text        strings.Builder
		reasoning   strings.Builder
		smoother    Smoother
		textID      = uuid.NewString()
		reasoningID = uuid.NewString()
	)
	emit := func(delta string) error {
		if delta == "" {
			return nil
		}
		if err := sink.Send(domain.TextDeltaEvent{ID: textID, Delta: delta}); err != nil {
			return err
		}
		return sleep(ctx, m.delay)
	}

	for {
		var r received
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case got, ok := <-chunks:
			if !ok {
				return nil, fmt.Errorf("read model stream: %w", io.ErrUnexpectedEOF)
			}
			r = got
		}

		if errors.Is(r.err, io.EOF) {
			break
		}
		if r.err != nil {
			return nil, r.err
		}

		c := r.chunk
		if c.Reasoning != "" {
			reasoning.WriteString(c.Reasoning)
			if err := sink.Send(domain.ReasoningDeltaEvent{ID: reasoningID, Delta: c.Reasoning}); err != nil {
				return nil, err
			}
		}
		if c.Text != "" {
			text.WriteString(c.Text)
			for _, word := range smoother.Push(c.Text) {
				if err := emit(word); err != nil {
					return nil, err
				}
			}
		}
		if len(c.ToolCalls) > 0 {
			out.calls = append(out.calls, c.ToolCalls...)
		}
		if c.Usage != nil {
			u := *c.Usage
			out.usage = &u
		}
		if c.FinishReason != "" {
			out.finishReason = c.FinishReason
		}
	}

	if err := emit(smoother.Flush()); err != nil {
		return nil, err
	}
	out.text = text.String()
	out.reasoning = reasoning.String()
	return &out, nil
}

// dedupeCalls drops repeated tool-call ids and names anonymous calls.
func dedupeCalls(calls []llm.ToolCall) []llm.ToolCall {
	seen := make(map[string]struct{}, len(calls))
	out := make([]llm.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if len(c.Arguments) == 0 {
			c.Arguments = json.RawMessage("{}")
		}
		out = append(out, c)
	}
	return out
}

func toolMessage(p domain.Part) llm.Message {
	content := string(p.Output)
	if p.ErrorText != "" {
		raw, _ := json.Marshal(map[string]string{"error": p.ErrorText})
		content = string(raw)
	}
	return llm.Message{
		Role:       domain.RoleTool,
		Content:    content,
		ToolCallID: p.ToolCallID,
		ToolName:   p.ToolName,
	}
}

// sinkEmitter forwards tool data events and remembers the first write failure.
type sinkEmitter struct {
	sink Sink
	err  error
}

func (e *sinkEmitter) Emit(ctx context.Context, ev domain.Event) error {
	if e.err != nil {
		return e.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.sink.Send(ev); err != nil {
		e.err = err
		return err
	}
	return nil
}
