package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/runerror"
)

// Gate is the two-layer safety check every tool call passes through: a
// deterministic policy decision, then (for ASK) an approvals round trip.
// A tool configured for a restricted sandbox still passes the gate, but
// the dispatcher is responsible for actually denying execution when no
// sandbox adapter is available.
type Gate struct {
	Sanitizer *Sanitizer
	Policy    *Policy
	Approvals *Approvals

	// Emitter and Now are optional; when Emitter is nil no approval
	// events are recorded (tests exercising the gate in isolation need
	// not wire a WAL).
	Emitter *hooks.Emitter
	Now     func() time.Time
}

// NewGate wires the three collaborators together.
func NewGate(sanitizer *Sanitizer, policy *Policy, approvals *Approvals) *Gate {
	return &Gate{Sanitizer: sanitizer, Policy: policy, Approvals: approvals, Now: time.Now}
}

// WithEmitter attaches the WAL emitter used to record approval_requested
// and approval_decided events.
func (g *Gate) WithEmitter(emitter *hooks.Emitter) *Gate {
	g.Emitter = emitter
	return g
}

func (g *Gate) now() int64 {
	if g.Now == nil {
		return time.Now().UnixMilli()
	}
	return g.Now().UnixMilli()
}

func (g *Gate) emit(ctx context.Context, runID string, evt hooks.Event) {
	if g.Emitter == nil {
		return
	}
	// Best-effort: a WAL append failure surfaces when the run's own
	// emitter calls fail, not from inside the gate.
	_ = g.Emitter.Emit(ctx, runID, evt)
}

// Verdict is the outcome of a gate check.
type Verdict struct {
	Decision    Mode
	ApprovalKey string
	Sanitized   json.RawMessage
}

// Check runs the sanitize -> policy -> (maybe) approvals pipeline for a
// call. defaultMode is the tool's SafetyDescriptor.DefaultMode. runID
// scopes the approval_requested/approval_decided events this call may
// emit. Empty args are treated as an empty JSON object.
func (g *Gate) Check(ctx context.Context, runID, tool, class string, args json.RawMessage, defaultMode Mode) (Verdict, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	sanitized, err := g.Sanitizer.Sanitize(class, args)
	if err != nil {
		return Verdict{}, runerror.Wrap(runerror.KindValidation, "sanitize failed", err)
	}
	canon, err := Canonicalize(sanitized)
	if err != nil {
		return Verdict{}, runerror.Wrap(runerror.KindValidation, "canonicalize failed", err)
	}
	key := Key(tool, canon)

	var intent Intent
	switch class {
	case "shell_exec", "shell_command", "exec_command", "skill_exec":
		var m map[string]any
		if err := json.Unmarshal(args, &m); err == nil {
			if cmd, ok := m["command"].(string); ok {
				intent, _ = ParseIntent(cmd)
			}
		}
	}

	mode := g.Policy.Decide(tool, intent, defaultMode)
	switch mode {
	case ModeAllow:
		return Verdict{Decision: ModeAllow, ApprovalKey: key, Sanitized: sanitized}, nil
	case ModeDeny:
		return Verdict{Decision: ModeDeny, ApprovalKey: key, Sanitized: sanitized}, nil
	case ModeAsk:
		if g.Approvals == nil {
			return Verdict{}, runerror.New(runerror.KindConfigError, "policy requires approval but no approval provider is configured")
		}
		onMiss := func() {
			g.emit(ctx, runID, hooks.NewApprovalRequestedEvent(runID, g.now(), key, tool, sanitized))
		}
		decision, reason, err := g.Approvals.Resolve(ctx, key, Request{Tool: tool, Sanitized: canon}, onMiss)
		g.emit(ctx, runID, hooks.NewApprovalDecidedEvent(runID, g.now(), key, string(decision), reason))
		if err != nil {
			return Verdict{}, runerror.Wrap(runerror.KindPermission, "approval failed", err)
		}
		switch decision {
		case DecisionApproved, DecisionApprovedForSession:
			return Verdict{Decision: ModeAllow, ApprovalKey: key, Sanitized: sanitized}, nil
		case DecisionDenied:
			return Verdict{Decision: ModeDeny, ApprovalKey: key, Sanitized: sanitized}, nil
		case DecisionAbort:
			return Verdict{}, runerror.New(runerror.KindCancelled, "user aborted approval")
		default:
			return Verdict{}, runerror.New(runerror.KindUnknown, fmt.Sprintf("unrecognized approval decision %q", decision))
		}
	default:
		return Verdict{}, runerror.New(runerror.KindUnknown, fmt.Sprintf("unrecognized policy mode %q", mode))
	}
}
