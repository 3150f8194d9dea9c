package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"goa.design/skillsruntime/runerror"
	"goa.design/skillsruntime/safety"
	"goa.design/skillsruntime/telemetry"
)

// Dispatcher executes a Call against the Registry through the safety gate.
type Dispatcher struct {
	Registry *Registry
	Gate     *safety.Gate
	Sandbox  SandboxAdapter // nil means no sandbox adapter is configured
	Logger   telemetry.Logger
	// Limiter bounds the rate of dispatched calls, protecting a
	// workspace runtime server or an external tool API from being
	// hammered by a runaway tool-call loop. Nil disables throttling.
	Limiter *rate.Limiter
}

// NewDispatcher wires a Registry and Gate together. sandbox may be nil; a
// nil logger is replaced by a no-op logger. Use WithRateLimit to set a
// limiter.
func NewDispatcher(registry *Registry, gate *safety.Gate, sandbox SandboxAdapter, logger telemetry.Logger) *Dispatcher {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Dispatcher{Registry: registry, Gate: gate, Sandbox: sandbox, Logger: logger}
}

// WithRateLimit sets the dispatcher's call-rate limiter and returns it for
// chaining.
func (d *Dispatcher) WithRateLimit(limiter *rate.Limiter) *Dispatcher {
	d.Limiter = limiter
	return d
}

// PreparedCall is a Call that has cleared the rate limiter, lookup,
// validation, safety gate, and sandbox checks and is ready for Invoke.
type PreparedCall struct {
	call    Call
	spec    Spec
	handler Handler
}

// SanitizedArguments returns the sanitized projection of a call's
// arguments, the same projection the safety gate computes internally, so a
// caller can record it (e.g. in a tool_call_requested event) before running
// the gate.
func (d *Dispatcher) SanitizedArguments(tool Ident, args json.RawMessage) (json.RawMessage, error) {
	spec, _, ok := d.Registry.Lookup(tool)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
	return d.Gate.Sanitizer.Sanitize(spec.Safety.Class, args)
}

// Check runs the lookup -> validate -> gate -> sandbox pipeline for call,
// scoped to runID for any approval events the gate emits. A non-nil Result
// means the call is decided (denied, sandbox-denied, or errored) and must
// not be passed to Invoke; the caller still owns emitting
// tool_call_finished for it.
func (d *Dispatcher) Check(ctx context.Context, runID string, call Call) (PreparedCall, *Result) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			res := errResult(call.ID, runerror.KindCancelled, "rate limit wait cancelled: "+err.Error())
			return PreparedCall{}, &res
		}
	}

	spec, handler, ok := d.Registry.Lookup(call.Tool)
	if !ok {
		res := errResult(call.ID, runerror.KindNotFound, fmt.Sprintf("unknown tool %q", call.Tool))
		return PreparedCall{}, &res
	}

	if err := spec.Payload.Validate(call.Arguments); err != nil {
		res := errResult(call.ID, runerror.KindValidation, err.Error())
		return PreparedCall{}, &res
	}

	verdict, err := d.Gate.Check(ctx, runID, string(call.Tool), spec.Safety.Class, call.Arguments, safety.Mode(spec.Safety.DefaultMode))
	if err != nil {
		res := gateErrResult(call.ID, err)
		return PreparedCall{}, &res
	}
	if verdict.Decision == safety.ModeDeny {
		res := Result{CallID: call.ID, Status: StatusDenied, ErrorKind: runerror.KindPermission, Error: "denied by policy"}
		return PreparedCall{}, &res
	}

	if spec.Safety.Sandbox == "restricted" && d.Sandbox == nil {
		res := errResult(call.ID, runerror.KindSandboxDenied, "tool requires a restricted sandbox but no sandbox adapter is configured")
		res.Data = map[string]any{"sandbox": sandboxDescriptor(spec.Safety.Sandbox, nil)}
		return PreparedCall{}, &res
	}

	return PreparedCall{call: call, spec: spec, handler: handler}, nil
}

// gateErrResult classifies an error returned by safety.Gate.Check into a
// tool-call-level Result. A policy misconfiguration (no approval provider
// for an ASK tool) displays as a plain permission denial on the tool call
// but marks the result Terminal with TerminalKind config_error, since the
// run as a whole cannot proceed without fixing the deployment. A user
// ABORT or a tripped loop guard are also terminal, with TerminalKind
// cancelled and permission respectively.
func gateErrResult(callID string, err error) Result {
	re, ok := err.(*runerror.Error)
	if !ok {
		return errResult(callID, runerror.KindUnknown, err.Error())
	}
	switch re.Kind {
	case runerror.KindConfigError:
		res := errResult(callID, runerror.KindPermission, re.Error())
		res.Terminal = true
		res.TerminalKind = runerror.KindConfigError
		return res
	case runerror.KindCancelled:
		res := errResult(callID, runerror.KindPermission, re.Error())
		res.Terminal = true
		res.TerminalKind = runerror.KindCancelled
		return res
	case runerror.KindPermission:
		res := errResult(callID, runerror.KindPermission, re.Error())
		if errors.Is(re, safety.ErrLoopGuard) {
			res.Terminal = true
			res.TerminalKind = runerror.KindPermission
		}
		return res
	default:
		return errResult(callID, re.Kind, re.Error())
	}
}

// Invoke runs prepared's handler and normalizes its result. Callers must
// only pass a PreparedCall returned by Check with a nil Result.
func (d *Dispatcher) Invoke(ctx context.Context, prepared PreparedCall, sessionEnv map[string]string, workspaceRoot string) Result {
	ec := ExecutionContext{
		Context:       ctx,
		WorkspaceRoot: workspaceRoot,
		Env:           sessionEnv,
		Sandbox:       d.Sandbox,
	}

	result, err := prepared.handler(ec, prepared.call)
	if err != nil {
		if re, ok := err.(*runerror.Error); ok {
			return errResult(prepared.call.ID, re.Kind, re.Error())
		}
		return errResult(prepared.call.ID, runerror.KindIO, err.Error())
	}
	if result.Data == nil {
		result.Data = map[string]any{}
	}
	result.Data["sandbox"] = sandboxDescriptor(prepared.spec.Safety.Sandbox, d.Sandbox)
	result.CallID = prepared.call.ID
	if result.Status == "" {
		result.Status = StatusOK
	}
	return result
}

// Execute runs the full Check-then-Invoke pipeline for call. It is a
// convenience for callers that do not need to emit an event between the
// gate decision and handler invocation (most tests); the run loop uses
// Check and Invoke directly so it can emit tool_call_started in between.
func (d *Dispatcher) Execute(ctx context.Context, runID string, call Call, sessionEnv map[string]string, workspaceRoot string) Result {
	prepared, res := d.Check(ctx, runID, call)
	if res != nil {
		return *res
	}
	return d.Invoke(ctx, prepared, sessionEnv, workspaceRoot)
}

// sandboxDescriptor builds the {requested, effective, adapter, active}
// projection recorded as a tool result's data.sandbox field. requested is
// the tool's SafetyDescriptor.Sandbox value ("" normalizes to "none");
// effective always mirrors requested, since the dispatcher never
// substitutes a different sandbox than the one the tool asked for, it
// either runs under it (adapter present) or does not (adapter nil).
func sandboxDescriptor(requested string, adapter SandboxAdapter) map[string]any {
	req := requested
	if req == "" {
		req = "none"
	}
	desc := map[string]any{
		"requested": req,
		"effective": req,
		"adapter":   nil,
		"active":    false,
	}
	if adapter != nil {
		desc["adapter"] = adapter.Name()
		desc["active"] = true
	}
	return desc
}

func errResult(callID string, kind runerror.Kind, msg string) Result {
	return Result{CallID: callID, Status: StatusError, ErrorKind: kind, Error: msg}
}
