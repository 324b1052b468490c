package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type EventType string

const (
	EventTextDelta    EventType = "text-delta"
	EventReasoning    EventType = "reasoning-delta"
	EventToolCall     EventType = "tool-call"
	EventToolResult   EventType = "tool-result"
	EventDataArtifact EventType = "data-artifact"
	EventDataUsage    EventType = "data-usage"
	EventFinish       EventType = "finish"
	EventError        EventType = "error"
)

// Event is one record of a chat stream. The set of implementations is closed;
// every record carries its EventType in the "type" field.
type Event interface {
	EventType() EventType
	event()
}

type TextDeltaEvent struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

// ReasoningDeltaEvent carries model reasoning, streamed unsmoothed.
type ReasoningDeltaEvent struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

type ToolCallEvent struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Input      json.RawMessage `json:"input"`
}

type ToolResultEvent struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
}

type ArtifactStage string

const (
	StageKind       ArtifactStage = "kind"
	StageID         ArtifactStage = "id"
	StageTitle      ArtifactStage = "title"
	StageClear      ArtifactStage = "clear"
	StageDelta      ArtifactStage = "delta"
	StageSuggestion ArtifactStage = "suggestion"
	StageFinish     ArtifactStage = "finish"
)

// DataArtifactEvent is emitted by document tools while they write.
type DataArtifactEvent struct {
	DocumentID string          `json:"documentId"`
	Stage      ArtifactStage   `json:"stage"`
	Value      string          `json:"value,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type DataUsageEvent struct {
	Data UsageSummary `json:"data"`
}

const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool-calls"
	FinishStepLimit = "step-limit"
)

type FinishEvent struct {
	FinishReason string `json:"finishReason"`
	Steps        int    `json:"steps"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (TextDeltaEvent) EventType() EventType      { return EventTextDelta }
func (ReasoningDeltaEvent) EventType() EventType { return EventReasoning }
func (ToolCallEvent) EventType() EventType       { return EventToolCall }
func (ToolResultEvent) EventType() EventType     { return EventToolResult }
func (DataArtifactEvent) EventType() EventType   { return EventDataArtifact }
func (DataUsageEvent) EventType() EventType      { return EventDataUsage }
func (FinishEvent) EventType() EventType         { return EventFinish }
func (ErrorEvent) EventType() EventType          { return EventError }

func (TextDeltaEvent) event()      {}
func (ReasoningDeltaEvent) event() {}
func (ToolCallEvent) event()       {}
func (ToolResultEvent) event()     {}
func (DataArtifactEvent) event()   {}
func (DataUsageEvent) event()      {}
func (FinishEvent) event()         {}
func (ErrorEvent) event()          {}

func (e TextDeltaEvent) MarshalJSON() ([]byte, error) {
	type payload TextDeltaEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e ReasoningDeltaEvent) MarshalJSON() ([]byte, error) {
	type payload ReasoningDeltaEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e ToolCallEvent) MarshalJSON() ([]byte, error) {
	type payload ToolCallEvent
	if len(e.Input) == 0 {
		e.Input = json.RawMessage("{}")
	}
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e ToolResultEvent) MarshalJSON() ([]byte, error) {
	type payload ToolResultEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e DataArtifactEvent) MarshalJSON() ([]byte, error) {
	type payload DataArtifactEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e DataUsageEvent) MarshalJSON() ([]byte, error) {
	type payload DataUsageEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e FinishEvent) MarshalJSON() ([]byte, error) {
	type payload FinishEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type payload ErrorEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		payload
	}{e.EventType(), payload(e)})
}

var ErrUnknownEvent = errors.New("unknown event type")

// DecodeEvent decodes one stream record.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	var ev Event
	var err error
	switch head.Type {
	case EventTextDelta:
		ev, err = decodeAs[TextDeltaEvent](data)
	case EventReasoning:
		ev, err = decodeAs[ReasoningDeltaEvent](data)
	case EventToolCall:
		ev, err = decodeAs[ToolCallEvent](data)
	case EventToolResult:
		ev, err = decodeAs[ToolResultEvent](data)
	case EventDataArtifact:
		ev, err = decodeAs[DataArtifactEvent](data)
	case EventDataUsage:
		ev, err = decodeAs[DataUsageEvent](data)
	case EventFinish:
		ev, err = decodeAs[FinishEvent](data)
	case EventError:
		ev, err = decodeAs[ErrorEvent](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Type, err)
	}
	return ev, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
