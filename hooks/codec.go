package hooks

import (
	"encoding/json"
	"fmt"
)

// Envelope is the stable wire shape for a persisted event: a type tag plus
// its JSON payload. It decouples the WAL's on-disk format from the Go event
// struct layout.
type Envelope struct {
	Type      EventType       `json:"type"`
	RunID     string          `json:"run_id"`
	TurnID    string          `json:"turn_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Encode converts a typed Event into its wire Envelope.
func Encode(evt Event) (Envelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("hooks: encode %s: %w", evt.Type(), err)
	}
	return Envelope{
		Type:      evt.Type(),
		RunID:     evt.RunID(),
		TurnID:    evt.TurnID(),
		Timestamp: evt.Timestamp(),
		Payload:   payload,
	}, nil
}

// Decode reconstructs a typed Event from its wire Envelope. Unknown event
// types are an error: the vocabulary is closed.
func Decode(env Envelope) (Event, error) {
	var evt Event
	switch env.Type {
	case EventRunStarted:
		evt = &RunStartedEvent{}
	case EventRunCompleted:
		evt = &RunCompletedEvent{}
	case EventRunFailed:
		evt = &RunFailedEvent{}
	case EventRunCancelled:
		evt = &RunCancelledEvent{}
	case EventLLMRequestStarted:
		evt = &LLMRequestStartedEvent{}
	case EventLLMResponseDelta:
		evt = &LLMResponseDeltaEvent{}
	case EventLLMResponseComplete:
		evt = &LLMResponseCompletedEvent{}
	case EventToolCallRequested:
		evt = &ToolCallRequestedEvent{}
	case EventToolCallStarted:
		evt = &ToolCallStartedEvent{}
	case EventToolCallFinished:
		evt = &ToolCallFinishedEvent{}
	case EventApprovalRequested:
		evt = &ApprovalRequestedEvent{}
	case EventApprovalDecided:
		evt = &ApprovalDecidedEvent{}
	case EventSkillInjected:
		evt = &SkillInjectedEvent{}
	case EventPromptCompiled:
		evt = &PromptCompiledEvent{}
	case EventPlanUpdated:
		evt = &PlanUpdatedEvent{}
	case EventContextCompacted:
		evt = &ContextCompactedEvent{}
	default:
		return nil, fmt.Errorf("hooks: unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return nil, fmt.Errorf("hooks: decode %s: %w", env.Type, err)
	}
	if bs, ok := evt.(baseSetter); ok {
		bs.setBase(env.RunID, env.TurnID, env.Timestamp)
	}
	return evt, nil
}
