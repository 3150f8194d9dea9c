package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/prompt"
	"goa.design/skillsruntime/runerror"
	"goa.design/skillsruntime/tools"
)

// Config wires a Run's collaborators together.
type Config struct {
	Emitter    *hooks.Emitter
	Dispatcher *tools.Dispatcher
	Backend    ChatBackend
	Prompt     *prompt.Manager
	Recovery   RecoveryConfig
	MaxSteps   int
	MaxWall    time.Duration
	Now        func() time.Time
}

// Run drives a single agent run to completion: repeated (LLM turn, maybe
// tool dispatch) steps bounded by a Budget, with context-length recovery
// and cooperative cancellation between every step.
type Run struct {
	id       string
	cfg      Config
	now      func() time.Time
	budget   Budget
	recovery *Recovery
	history  []prompt.Message
}

// NewRun starts a new run with a freshly generated ID.
func NewRun(cfg Config) *Run {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Run{
		id:       uuid.NewString(),
		cfg:      cfg,
		now:      now,
		budget:   NewBudget(cfg.MaxSteps, cfg.MaxWall, now()),
		recovery: NewRecovery(cfg.Recovery),
	}
}

// ID returns the run's identifier.
func (r *Run) ID() string { return r.id }

// Terminal is the final outcome of a run.
type Terminal struct {
	OK      bool
	Message string
	Kind    runerror.Kind
	Notices []Notice
}

// Stream drives the run to completion, emitting every event along the way.
// It stops as soon as the model returns a final assistant message with no
// further tool requests, the budget is exhausted, the context is
// cancelled, or a tool/backend error is terminal.
func (r *Run) Stream(ctx context.Context, task string) Terminal {
	if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewRunStartedEvent(r.id, r.now().UnixMilli(), task)); err != nil {
		return r.fail(ctx, runerror.KindIO, err.Error())
	}

	toolResults := []prompt.Message{}
	for {
		select {
		case <-ctx.Done():
			return r.cancel(ctx, "context cancelled")
		default:
		}

		if r.budget.Exhausted(r.now()) {
			return r.fail(ctx, runerror.KindBudget, "step or wall-clock budget exhausted")
		}
		r.budget = r.budget.Consume()

		compiled := r.cfg.Prompt.Compile(task, r.history, "", nil)
		if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewPromptCompiledEvent(r.id, r.now().UnixMilli(), compiled.Bytes(), compiled.HistoryBytes())); err != nil {
			return r.fail(ctx, runerror.KindIO, err.Error())
		}

		assistant, toolRequests, contextExceeded, terminal := r.runTurn(ctx, compiled, toolResults)
		if terminal != nil {
			return *terminal
		}

		if contextExceeded {
			recovered, terminal := r.handleContextLengthExceeded(ctx)
			if terminal != nil {
				return *terminal
			}
			r.history = recovered
			continue
		}

		if len(toolRequests) == 0 {
			return r.succeed(ctx, assistant)
		}

		r.history = append(r.history, prompt.Message{Role: "assistant", Content: assistant})
		toolResults = toolResults[:0]
		for _, req := range toolRequests {
			select {
			case <-ctx.Done():
				return r.cancel(ctx, "context cancelled during tool dispatch")
			default:
			}

			if r.budget.Exhausted(r.now()) {
				return r.fail(ctx, runerror.KindBudget, "step or wall-clock budget exhausted")
			}
			r.budget = r.budget.Consume()

			result, terminal := r.dispatchToolCall(ctx, req)
			if terminal != nil {
				return *terminal
			}
			toolResults = append(toolResults, prompt.Message{Role: "tool", Content: resultToText(result)})
		}
		r.history = append(r.history, toolResults...)
	}
}

// runTurn drives one streamed model turn: it emits llm_request_started,
// relays llm_response_delta for every text fragment, buffers tool-call
// argument fragments per call_id, and emits llm_response_completed once the
// stream closes.
func (r *Run) runTurn(ctx context.Context, compiled prompt.Compiled, toolResults []prompt.Message) (assistant string, requests []ToolRequest, contextExceeded bool, terminal *Terminal) {
	deltas, err := r.cfg.Backend.ChatStream(ctx, compiled, toolResults)
	if err != nil {
		t := r.fail(ctx, runerror.KindIO, err.Error())
		return "", nil, false, &t
	}
	if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewLLMRequestStartedEvent(r.id, r.now().UnixMilli())); err != nil {
		t := r.fail(ctx, runerror.KindIO, err.Error())
		return "", nil, false, &t
	}

	var text strings.Builder
	pending := map[string]*pendingToolCall{}
	var order []string
	var streamErr error

drain:
	for {
		select {
		case <-ctx.Done():
			t := r.cancel(ctx, "context cancelled")
			return "", nil, false, &t
		case d, ok := <-deltas:
			if !ok {
				break drain
			}
			switch d.Kind {
			case DeltaText:
				text.WriteString(d.Text)
				if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewLLMResponseDeltaEvent(r.id, r.now().UnixMilli(), d.Text)); err != nil {
					t := r.fail(ctx, runerror.KindIO, err.Error())
					return "", nil, false, &t
				}
			case DeltaToolCall:
				pc, ok := pending[d.CallID]
				if !ok {
					pc = &pendingToolCall{tool: d.Tool}
					pending[d.CallID] = pc
					order = append(order, d.CallID)
				}
				pc.args.WriteString(d.Fragment)
			case DeltaDone:
				contextExceeded = d.ContextLengthExceeded
				streamErr = d.Err
			}
		}
	}

	finishReason := "stop"
	if streamErr != nil {
		finishReason = "error"
	} else if contextExceeded {
		finishReason = "context_length_exceeded"
	}
	if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewLLMResponseCompletedEvent(r.id, r.now().UnixMilli(), finishReason)); err != nil {
		t := r.fail(ctx, runerror.KindIO, err.Error())
		return "", nil, false, &t
	}

	if streamErr != nil {
		t := r.fail(ctx, runerror.KindIO, streamErr.Error())
		return "", nil, false, &t
	}
	if contextExceeded {
		return "", nil, true, nil
	}

	for _, id := range order {
		args := pending[id].args.String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		requests = append(requests, ToolRequest{CallID: id, Tool: pending[id].tool, Arguments: json.RawMessage(args)})
	}
	return text.String(), requests, false, nil
}

type pendingToolCall struct {
	tool string
	args strings.Builder
}

// dispatchToolCall runs the spec's per-call pseudocode: emit
// tool_call_requested with the sanitized projection, run the safety gate,
// emit tool_call_started once cleared, invoke the handler, and emit
// tool_call_finished. A non-nil Terminal means the dispatcher result
// requires ending the run (an ASK tool with no approval provider, a user
// ABORT, or a tripped loop guard) instead of feeding a tool message back
// into history.
func (r *Run) dispatchToolCall(ctx context.Context, req ToolRequest) (tools.Result, *Terminal) {
	sanitized, err := r.cfg.Dispatcher.SanitizedArguments(tools.Ident(req.Tool), req.Arguments)
	if err != nil {
		sanitized = json.RawMessage(`{}`)
	}
	if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewToolCallRequestedEvent(r.id, r.now().UnixMilli(), req.CallID, req.Tool, sanitized)); err != nil {
		t := r.fail(ctx, runerror.KindIO, err.Error())
		return tools.Result{}, &t
	}

	call := tools.Call{ID: req.CallID, Tool: tools.Ident(req.Tool), Arguments: req.Arguments}
	prepared, shortCircuit := r.cfg.Dispatcher.Check(ctx, r.id, call)

	var result tools.Result
	if shortCircuit != nil {
		result = *shortCircuit
	} else {
		if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewToolCallStartedEvent(r.id, r.now().UnixMilli(), req.CallID, req.Tool)); err != nil {
			t := r.fail(ctx, runerror.KindIO, err.Error())
			return tools.Result{}, &t
		}
		result = r.cfg.Dispatcher.Invoke(ctx, prepared, nil, "")
	}

	ok := result.Status == tools.StatusOK
	if err := r.cfg.Emitter.Emit(ctx, r.id, hooks.NewToolCallFinishedEvent(r.id, r.now().UnixMilli(), req.CallID, req.Tool, ok, string(result.ErrorKind), result.Output)); err != nil {
		t := r.fail(ctx, runerror.KindIO, err.Error())
		return tools.Result{}, &t
	}

	if result.Terminal {
		switch result.TerminalKind {
		case runerror.KindCancelled:
			t := r.cancel(ctx, "approval aborted by user")
			return result, &t
		case runerror.KindConfigError:
			t := r.fail(ctx, runerror.KindConfigError, "safety gate requires an approval provider that is not configured")
			return result, &t
		default:
			t := r.fail(ctx, result.TerminalKind, result.Error)
			return result, &t
		}
	}
	return result, nil
}

func (r *Run) handleContextLengthExceeded(ctx context.Context) ([]prompt.Message, *Terminal) {
	switch r.recovery.Config.Mode {
	case RecoveryCompactFirst:
		compacted, err := r.recovery.Compact(r.history)
		if err != nil {
			t := r.fail(ctx, runerror.KindContextLengthExceeded, err.Error())
			return nil, &t
		}
		last := r.recovery.Notices[len(r.recovery.Notices)-1]
		_ = r.cfg.Emitter.Emit(ctx, r.id, hooks.NewContextCompactedEvent(r.id, r.now().UnixMilli(), last.KeptMessages, last.DroppedChars))
		return compacted, nil
	case RecoveryAskFirst:
		// No HumanIOProvider is wired into the core loop (it is an
		// external collaborator); fall back per configuration.
		if r.recovery.Config.AskFirstFallback == FallbackCompact {
			compacted, err := r.recovery.Compact(r.history)
			if err != nil {
				t := r.fail(ctx, runerror.KindContextLengthExceeded, err.Error())
				return nil, &t
			}
			return compacted, nil
		}
		t := r.fail(ctx, runerror.KindContextLengthExceeded, "context length exceeded, ask_first has no human-I/O provider configured")
		return nil, &t
	default:
		t := r.fail(ctx, runerror.KindContextLengthExceeded, "context length exceeded")
		return nil, &t
	}
}

func (r *Run) succeed(ctx context.Context, message string) Terminal {
	payload, _ := json.Marshal(map[string]string{"message": message})
	_ = r.cfg.Emitter.Emit(ctx, r.id, hooks.NewRunCompletedEvent(r.id, r.now().UnixMilli(), payload))
	return Terminal{OK: true, Message: message, Notices: r.recovery.Notices}
}

func (r *Run) fail(ctx context.Context, kind runerror.Kind, message string) Terminal {
	_ = r.cfg.Emitter.Emit(ctx, r.id, hooks.NewRunFailedEvent(r.id, r.now().UnixMilli(), string(kind), message))
	return Terminal{OK: false, Kind: kind, Message: message, Notices: r.recovery.Notices}
}

func (r *Run) cancel(ctx context.Context, reason string) Terminal {
	_ = r.cfg.Emitter.Emit(ctx, r.id, hooks.NewRunCancelledEvent(r.id, r.now().UnixMilli(), reason))
	return Terminal{OK: false, Kind: runerror.KindCancelled, Message: reason, Notices: r.recovery.Notices}
}

func resultToText(result tools.Result) string {
	if result.Status == tools.StatusOK {
		return string(result.Output)
	}
	return fmt.Sprintf("error(%s): %s", result.ErrorKind, result.Error)
}
