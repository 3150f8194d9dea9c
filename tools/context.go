package tools

import "context"

// ExecutionContext is the environment a handler runs in. WorkspaceRoot is
// passed through as given; nothing here checks a handler's paths against
// it. Dispatcher.Invoke sets Env to the session environment only and does
// not layer per-call variables over it.
type ExecutionContext struct {
	Context     context.Context
	WorkspaceRoot string
	Env         map[string]string
	Sandbox     SandboxAdapter
}

// MergeEnv merges sessionEnv and perCallEnv, with perCallEnv taking precedence
// for any key present in both.
func MergeEnv(sessionEnv, perCallEnv map[string]string) map[string]string {
	out := make(map[string]string, len(sessionEnv)+len(perCallEnv))
	for k, v := range sessionEnv {
		out[k] = v
	}
	for k, v := range perCallEnv {
		out[k] = v
	}
	return out
}

// SandboxAdapter wraps a handler's process execution in an OS-level
// sandbox. Its absence for a tool whose SafetyDescriptor.Sandbox ==
// "restricted" is a sandbox_denied error, never a silent downgrade.
type SandboxAdapter interface {
	Name() string
}
