package loop_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/loop"
	"goa.design/skillsruntime/prompt"
	"goa.design/skillsruntime/runerror"
	"goa.design/skillsruntime/safety"
	"goa.design/skillsruntime/tools"
	"goa.design/skillsruntime/wal/memstore"
)

// scriptedTurn is one canned streamed turn.
type scriptedTurn struct {
	assistantMessage      string
	toolRequests          []loop.ToolRequest
	contextLengthExceeded bool
	err                   error
}

type scriptedBackend struct {
	turns []scriptedTurn
	i     int
}

func (s *scriptedBackend) ChatStream(context.Context, prompt.Compiled, []prompt.Message) (<-chan loop.Delta, error) {
	turn := s.turns[s.i]
	if s.i < len(s.turns)-1 {
		s.i++
	}
	ch := make(chan loop.Delta, 8)
	go func() {
		defer close(ch)
		if turn.assistantMessage != "" {
			ch <- loop.Delta{Kind: loop.DeltaText, Text: turn.assistantMessage}
		}
		for _, req := range turn.toolRequests {
			ch <- loop.Delta{Kind: loop.DeltaToolCall, CallID: req.CallID, Tool: req.Tool, Fragment: string(req.Arguments)}
		}
		ch <- loop.Delta{Kind: loop.DeltaDone, ContextLengthExceeded: turn.contextLengthExceeded, Err: turn.err}
	}()
	return ch, nil
}

func newTestDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.Spec{
		Name:   "echo",
		Safety: tools.SafetyDescriptor{DefaultMode: "allow"},
	}, func(ec tools.ExecutionContext, call tools.Call) (tools.Result, error) {
		return tools.Result{Status: tools.StatusOK, Output: call.Arguments}, nil
	}, false))
	gate := safety.NewGate(safety.NewSanitizer(), safety.NewPolicy(), nil)
	return tools.NewDispatcher(reg, gate, nil, nil)
}

func TestRunCompletesWithNoToolCalls(t *testing.T) {
	backend := &scriptedBackend{turns: []scriptedTurn{{assistantMessage: "all done"}}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(memstore.New(), hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "say hello")

	assert.True(t, term.OK)
	assert.Equal(t, "all done", term.Message)
}

func TestRunEmitsStreamingLLMEvents(t *testing.T) {
	store := memstore.New()
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(store, hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    &scriptedBackend{turns: []scriptedTurn{{assistantMessage: "all done"}}},
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "say hello")
	require.True(t, term.OK)

	recs, err := store.ReadPrefix(context.Background(), run.ID(), -1)
	require.NoError(t, err)
	var types []hooks.EventType
	for _, rec := range recs {
		types = append(types, rec.Envelope.Type)
	}
	assert.Equal(t, []hooks.EventType{
		hooks.EventRunStarted,
		hooks.EventPromptCompiled,
		hooks.EventLLMRequestStarted,
		hooks.EventLLMResponseDelta,
		hooks.EventLLMResponseComplete,
		hooks.EventRunCompleted,
	}, types)
}

func TestRunDispatchesToolThenCompletes(t *testing.T) {
	backend := &scriptedBackend{turns: []scriptedTurn{
		{toolRequests: []loop.ToolRequest{{CallID: "c1", Tool: "echo", Arguments: []byte(`{"x":1}`)}}},
		{assistantMessage: "finished after tool"},
	}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(memstore.New(), hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "use the tool")

	assert.True(t, term.OK)
	assert.Equal(t, "finished after tool", term.Message)
}

func TestRunEmitsToolCallStartedBeforeFinished(t *testing.T) {
	store := memstore.New()
	backend := &scriptedBackend{turns: []scriptedTurn{
		{toolRequests: []loop.ToolRequest{{CallID: "c1", Tool: "echo", Arguments: []byte(`{"x":1}`)}}},
		{assistantMessage: "finished after tool"},
	}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(store, hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "use the tool")
	require.True(t, term.OK)

	recs, err := store.ReadPrefix(context.Background(), run.ID(), -1)
	require.NoError(t, err)
	var sawRequested, sawStarted, sawFinished bool
	for _, rec := range recs {
		switch rec.Envelope.Type {
		case hooks.EventToolCallRequested:
			sawRequested = true
			assert.False(t, sawStarted, "tool_call_requested must precede tool_call_started")
		case hooks.EventToolCallStarted:
			sawStarted = true
			assert.True(t, sawRequested, "tool_call_started must follow tool_call_requested")
		case hooks.EventToolCallFinished:
			sawFinished = true
			assert.True(t, sawStarted, "tool_call_finished must follow tool_call_started")
		}
	}
	assert.True(t, sawRequested && sawStarted && sawFinished)
}

func TestRunFailsWhenStepBudgetExhausted(t *testing.T) {
	backend := &scriptedBackend{turns: []scriptedTurn{
		{toolRequests: []loop.ToolRequest{{CallID: "c1", Tool: "echo", Arguments: []byte(`{}`)}}},
	}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(memstore.New(), hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   1,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "loop forever")

	assert.False(t, term.OK)
	assert.Equal(t, runerror.KindBudget, term.Kind)
}

func TestRunCancelledContextStopsImmediately(t *testing.T) {
	backend := &scriptedBackend{turns: []scriptedTurn{{assistantMessage: "should not get here"}}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(memstore.New(), hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := loop.NewRun(cfg)
	term := run.Stream(ctx, "task")
	assert.False(t, term.OK)
	assert.Equal(t, runerror.KindCancelled, term.Kind)
}

func TestContextRecoveryCompactFirstCompactsAndContinues(t *testing.T) {
	backend := &scriptedBackend{turns: []scriptedTurn{
		{contextLengthExceeded: true},
		{assistantMessage: "done after compaction"},
	}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(memstore.New(), hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		Recovery:   loop.RecoveryConfig{Mode: loop.RecoveryCompactFirst, MaxCompactionsPerRun: 2, CompactionKeepLastMessages: 1},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "task")

	assert.True(t, term.OK)
	assert.Equal(t, "done after compaction", term.Message)
	assert.Len(t, term.Notices, 1)
}

func TestContextRecoveryFailFastFailsImmediately(t *testing.T) {
	backend := &scriptedBackend{turns: []scriptedTurn{{contextLengthExceeded: true}}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(memstore.New(), hooks.NewBus(nil)),
		Dispatcher: newTestDispatcher(t),
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		Recovery:   loop.RecoveryConfig{Mode: loop.RecoveryFailFast},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "task")

	assert.False(t, term.OK)
	assert.Equal(t, runerror.KindContextLengthExceeded, term.Kind)
}

func TestRunTerminatesOnConfigErrorWhenAskHasNoProvider(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.Spec{
		Name:   "risky",
		Safety: tools.SafetyDescriptor{DefaultMode: "ask"},
	}, func(ec tools.ExecutionContext, call tools.Call) (tools.Result, error) {
		t.Fatal("handler must not run when the gate cannot resolve an ASK decision")
		return tools.Result{}, nil
	}, false))
	gate := safety.NewGate(safety.NewSanitizer(), safety.NewPolicy(), nil)
	dispatcher := tools.NewDispatcher(reg, gate, nil, nil)

	store := memstore.New()
	backend := &scriptedBackend{turns: []scriptedTurn{
		{toolRequests: []loop.ToolRequest{{CallID: "c1", Tool: "risky", Arguments: []byte(`{}`)}}},
	}}
	cfg := loop.Config{
		Emitter:    hooks.NewEmitter(store, hooks.NewBus(nil)),
		Dispatcher: dispatcher,
		Backend:    backend,
		Prompt:     &prompt.Manager{InjectionMaxBytes: 1000},
		MaxSteps:   10,
		MaxWall:    time.Minute,
	}
	run := loop.NewRun(cfg)
	term := run.Stream(context.Background(), "do something risky")

	assert.False(t, term.OK)
	assert.Equal(t, runerror.KindConfigError, term.Kind)

	recs, err := store.ReadPrefix(context.Background(), run.ID(), -1)
	require.NoError(t, err)
	var finished *hooks.ToolCallFinishedEvent
	var failed *hooks.RunFailedEvent
	for _, rec := range recs {
		switch e := rec.Envelope; e.Type {
		case hooks.EventToolCallFinished:
			var evt hooks.ToolCallFinishedEvent
			require.NoError(t, json.Unmarshal(e.Payload, &evt))
			finished = &evt
		case hooks.EventRunFailed:
			var evt hooks.RunFailedEvent
			require.NoError(t, json.Unmarshal(e.Payload, &evt))
			failed = &evt
		}
	}
	require.NotNil(t, finished)
	assert.Equal(t, "permission", finished.ErrorKind, "tool_call_finished displays the tool-level denial, not the run-level cause")
	require.NotNil(t, failed)
	assert.Equal(t, "config_error", failed.ErrorKind)
}
