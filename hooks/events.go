// Package hooks defines the closed event vocabulary emitted by a run and the
// bus that fans events out to observers.
package hooks

import "encoding/json"

// EventType identifies one of the closed set of event kinds a run emits.
type EventType string

const (
	EventRunStarted          EventType = "run_started"
	EventRunCompleted        EventType = "run_completed"
	EventRunFailed           EventType = "run_failed"
	EventRunCancelled        EventType = "run_cancelled"
	EventLLMRequestStarted   EventType = "llm_request_started"
	EventLLMResponseDelta    EventType = "llm_response_delta"
	EventLLMResponseComplete EventType = "llm_response_completed"
	EventToolCallRequested   EventType = "tool_call_requested"
	EventToolCallStarted     EventType = "tool_call_started"
	EventToolCallFinished    EventType = "tool_call_finished"
	EventApprovalRequested   EventType = "approval_requested"
	EventApprovalDecided     EventType = "approval_decided"
	EventHumanRequest        EventType = "human_request"
	EventHumanResponse       EventType = "human_response"
	EventPlanUpdated         EventType = "plan_updated"
	EventSkillInjected       EventType = "skill_injected"
	EventPromptCompiled      EventType = "prompt_compiled"
	EventContextCompacted    EventType = "context_compacted"
)

// Event is a single immutable run event.
type Event interface {
	Type() EventType
	RunID() string
	TurnID() string
	Timestamp() int64
	// SetTurnID stamps the current turn onto the event before it is
	// durably appended; events constructed before a turn begins (e.g.
	// run_started) carry an empty turn ID.
	SetTurnID(turnID string)
}

type baseEvent struct {
	runID     string
	turnID    string
	timestamp int64
}

func newBaseEvent(runID string, now int64) baseEvent {
	return baseEvent{runID: runID, timestamp: now}
}

func (b baseEvent) RunID() string       { return b.runID }
func (b baseEvent) TurnID() string      { return b.turnID }
func (b baseEvent) Timestamp() int64    { return b.timestamp }
func (b *baseEvent) SetTurnID(turnID string) { b.turnID = turnID }

// setBase restores the envelope-level fields onto a decoded event. It backs
// Decode, which unmarshals only the exported, event-specific payload.
func (b *baseEvent) setBase(runID, turnID string, ts int64) {
	b.runID, b.turnID, b.timestamp = runID, turnID, ts
}

type baseSetter interface {
	setBase(runID, turnID string, ts int64)
}

// RunStartedEvent marks the beginning of a run.
type RunStartedEvent struct {
	baseEvent
	Task string `json:"task"`
}

// NewRunStartedEvent constructs a run_started event.
func NewRunStartedEvent(runID string, now int64, task string) *RunStartedEvent {
	return &RunStartedEvent{baseEvent: newBaseEvent(runID, now), Task: task}
}
func (*RunStartedEvent) Type() EventType { return EventRunStarted }

// RunCompletedEvent marks a run's successful terminal state.
type RunCompletedEvent struct {
	baseEvent
	Result json.RawMessage `json:"result"`
}

func NewRunCompletedEvent(runID string, now int64, result json.RawMessage) *RunCompletedEvent {
	return &RunCompletedEvent{baseEvent: newBaseEvent(runID, now), Result: result}
}
func (*RunCompletedEvent) Type() EventType { return EventRunCompleted }

// RunFailedEvent marks a run's failed terminal state.
type RunFailedEvent struct {
	baseEvent
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

func NewRunFailedEvent(runID string, now int64, kind, message string) *RunFailedEvent {
	return &RunFailedEvent{baseEvent: newBaseEvent(runID, now), ErrorKind: kind, Message: message}
}
func (*RunFailedEvent) Type() EventType { return EventRunFailed }

// RunCancelledEvent marks a run cancelled by its caller or by user abort.
type RunCancelledEvent struct {
	baseEvent
	Reason string `json:"reason"`
}

func NewRunCancelledEvent(runID string, now int64, reason string) *RunCancelledEvent {
	return &RunCancelledEvent{baseEvent: newBaseEvent(runID, now), Reason: reason}
}
func (*RunCancelledEvent) Type() EventType { return EventRunCancelled }

// ToolCallRequestedEvent records a tool the model asked to invoke.
type ToolCallRequestedEvent struct {
	baseEvent
	CallID    string          `json:"call_id"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

func NewToolCallRequestedEvent(runID string, now int64, callID, tool string, args json.RawMessage) *ToolCallRequestedEvent {
	return &ToolCallRequestedEvent{baseEvent: newBaseEvent(runID, now), CallID: callID, Tool: tool, Arguments: args}
}
func (*ToolCallRequestedEvent) Type() EventType { return EventToolCallRequested }

// ToolCallStartedEvent marks a tool call cleared by the safety gate and
// about to be handed to its handler.
type ToolCallStartedEvent struct {
	baseEvent
	CallID string `json:"call_id"`
	Tool   string `json:"tool"`
}

func NewToolCallStartedEvent(runID string, now int64, callID, tool string) *ToolCallStartedEvent {
	return &ToolCallStartedEvent{baseEvent: newBaseEvent(runID, now), CallID: callID, Tool: tool}
}
func (*ToolCallStartedEvent) Type() EventType { return EventToolCallStarted }

// ToolCallFinishedEvent records the outcome of a dispatched tool call.
type ToolCallFinishedEvent struct {
	baseEvent
	CallID    string          `json:"call_id"`
	Tool      string          `json:"tool"`
	OK        bool            `json:"ok"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

func NewToolCallFinishedEvent(runID string, now int64, callID, tool string, ok bool, errKind string, result json.RawMessage) *ToolCallFinishedEvent {
	return &ToolCallFinishedEvent{baseEvent: newBaseEvent(runID, now), CallID: callID, Tool: tool, OK: ok, ErrorKind: errKind, Result: result}
}
func (*ToolCallFinishedEvent) Type() EventType { return EventToolCallFinished }

// ApprovalRequestedEvent records that the safety gate is waiting on a
// human or programmatic decision for a sanitized request.
type ApprovalRequestedEvent struct {
	baseEvent
	ApprovalKey string          `json:"approval_key"`
	Tool        string          `json:"tool"`
	Sanitized   json.RawMessage `json:"sanitized_request"`
}

func NewApprovalRequestedEvent(runID string, now int64, key, tool string, sanitized json.RawMessage) *ApprovalRequestedEvent {
	return &ApprovalRequestedEvent{baseEvent: newBaseEvent(runID, now), ApprovalKey: key, Tool: tool, Sanitized: sanitized}
}
func (*ApprovalRequestedEvent) Type() EventType { return EventApprovalRequested }

// ApprovalDecidedEvent records the outcome of an approval request. Reason
// is "cached" when a prior APPROVED_FOR_SESSION decision was reused
// without consulting the provider, or "provider" when the provider was
// asked.
type ApprovalDecidedEvent struct {
	baseEvent
	ApprovalKey string `json:"approval_key"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason"`
}

func NewApprovalDecidedEvent(runID string, now int64, key, decision, reason string) *ApprovalDecidedEvent {
	return &ApprovalDecidedEvent{baseEvent: newBaseEvent(runID, now), ApprovalKey: key, Decision: decision, Reason: reason}
}
func (*ApprovalDecidedEvent) Type() EventType { return EventApprovalDecided }

// SkillInjectedEvent records a skill body injected into the compiled prompt.
type SkillInjectedEvent struct {
	baseEvent
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Bytes     int    `json:"bytes"`
}

func NewSkillInjectedEvent(runID string, now int64, ns, name string, size int) *SkillInjectedEvent {
	return &SkillInjectedEvent{baseEvent: newBaseEvent(runID, now), Namespace: ns, Name: name, Bytes: size}
}
func (*SkillInjectedEvent) Type() EventType { return EventSkillInjected }

// PromptCompiledEvent records the byte size of a compiled prompt.
type PromptCompiledEvent struct {
	baseEvent
	TotalBytes   int `json:"total_bytes"`
	HistoryBytes int `json:"history_bytes"`
}

func NewPromptCompiledEvent(runID string, now int64, total, history int) *PromptCompiledEvent {
	return &PromptCompiledEvent{baseEvent: newBaseEvent(runID, now), TotalBytes: total, HistoryBytes: history}
}
func (*PromptCompiledEvent) Type() EventType { return EventPromptCompiled }

// LLMRequestStartedEvent marks the start of a streamed call to the model.
type LLMRequestStartedEvent struct {
	baseEvent
}

func NewLLMRequestStartedEvent(runID string, now int64) *LLMRequestStartedEvent {
	return &LLMRequestStartedEvent{baseEvent: newBaseEvent(runID, now)}
}
func (*LLMRequestStartedEvent) Type() EventType { return EventLLMRequestStarted }

// LLMResponseDeltaEvent carries one incremental chunk of assistant text.
type LLMResponseDeltaEvent struct {
	baseEvent
	Text string `json:"text"`
}

func NewLLMResponseDeltaEvent(runID string, now int64, text string) *LLMResponseDeltaEvent {
	return &LLMResponseDeltaEvent{baseEvent: newBaseEvent(runID, now), Text: text}
}
func (*LLMResponseDeltaEvent) Type() EventType { return EventLLMResponseDelta }

// LLMResponseCompletedEvent closes out a streamed model call, successful
// or not.
type LLMResponseCompletedEvent struct {
	baseEvent
	FinishReason string `json:"finish_reason"`
}

func NewLLMResponseCompletedEvent(runID string, now int64, finishReason string) *LLMResponseCompletedEvent {
	return &LLMResponseCompletedEvent{baseEvent: newBaseEvent(runID, now), FinishReason: finishReason}
}
func (*LLMResponseCompletedEvent) Type() EventType { return EventLLMResponseComplete }

// PlanUpdatedEvent records a revision to the run's plan document.
type PlanUpdatedEvent struct {
	baseEvent
	Plan json.RawMessage `json:"plan"`
}

func NewPlanUpdatedEvent(runID string, now int64, plan json.RawMessage) *PlanUpdatedEvent {
	return &PlanUpdatedEvent{baseEvent: newBaseEvent(runID, now), Plan: plan}
}
func (*PlanUpdatedEvent) Type() EventType { return EventPlanUpdated }

// ContextCompactedEvent records a context-recovery compaction.
type ContextCompactedEvent struct {
	baseEvent
	KeptMessages int `json:"kept_messages"`
	DroppedChars int `json:"dropped_chars"`
}

func NewContextCompactedEvent(runID string, now int64, kept, dropped int) *ContextCompactedEvent {
	return &ContextCompactedEvent{baseEvent: newBaseEvent(runID, now), KeptMessages: kept, DroppedChars: dropped}
}
func (*ContextCompactedEvent) Type() EventType { return EventContextCompacted }
