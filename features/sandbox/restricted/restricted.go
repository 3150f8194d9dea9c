// Package restricted implements a process-boundary SandboxAdapter using
// os/exec with a restricted SysProcAttr, the minimal sandbox a dispatcher
// can require for tools marked Sandbox: "restricted".
package restricted

import (
	"os/exec"
	"syscall"
)

// Adapter wraps command execution so each invocation gets its own process
// group, letting the caller terminate an entire command tree at once.
type Adapter struct{}

// New returns a restricted Adapter.
func New() *Adapter { return &Adapter{} }

func (*Adapter) Name() string { return "restricted" }

// Prepare configures cmd to run in its own process group.
func (*Adapter) Prepare(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
