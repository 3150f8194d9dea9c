// Package exec registers the exec_command and write_stdin tools, the
// dispatcher-facing handlers that call through to a workspace's runtime
// server via runtimeclient.
package exec

import (
	"encoding/json"
	"fmt"

	"goa.design/skillsruntime/runerror"
	"goa.design/skillsruntime/runtimeclient"
	"goa.design/skillsruntime/tools"
)

type execArgs struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Register adds exec_command and write_stdin to reg, dialing the runtime
// server for workspaceDir on every call.
func Register(reg *tools.Registry, workspaceDir string) error {
	if err := reg.Register(tools.Spec{
		Name:        "exec_command",
		Description: "Run a command in a PTY-backed session on the workspace runtime server.",
		Safety:      tools.SafetyDescriptor{Class: "exec_command", Sandbox: "restricted", DefaultMode: "ask"},
	}, execCommandHandler(workspaceDir), false); err != nil {
		return err
	}

	return reg.Register(tools.Spec{
		Name:        "write_stdin",
		Description: "Write characters to a running exec session's stdin.",
		Safety:      tools.SafetyDescriptor{Class: "write_stdin", DefaultMode: "ask"},
	}, writeStdinHandler(workspaceDir), false)
}

func execCommandHandler(workspaceDir string) tools.Handler {
	return func(ec tools.ExecutionContext, call tools.Call) (tools.Result, error) {
		var args execArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return tools.Result{}, runerror.Wrap(runerror.KindValidation, "invalid exec_command arguments", err)
		}

		client, err := runtimeclient.Dial(workspaceDir)
		if err != nil {
			return tools.Result{}, runerror.Wrap(runerror.KindIO, "dial runtime server", err)
		}
		defer client.Close()

		sessionID, err := client.ExecCommand(args.Command, args.Args)
		if err != nil {
			return tools.Result{}, runerror.Wrap(runerror.KindIO, "exec command", err)
		}

		output, _ := json.Marshal(map[string]string{"session_id": sessionID})
		return tools.Result{Status: tools.StatusOK, Output: output}, nil
	}
}

func writeStdinHandler(workspaceDir string) tools.Handler {
	return func(ec tools.ExecutionContext, call tools.Call) (tools.Result, error) {
		var args struct {
			SessionID string `json:"session_id"`
			Chars     string `json:"chars"`
		}
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return tools.Result{}, runerror.Wrap(runerror.KindValidation, "invalid write_stdin arguments", err)
		}

		client, err := runtimeclient.Dial(workspaceDir)
		if err != nil {
			return tools.Result{}, runerror.Wrap(runerror.KindIO, "dial runtime server", err)
		}
		defer client.Close()

		if err := client.WriteStdin(args.SessionID, args.Chars); err != nil {
			return tools.Result{}, runerror.Wrap(runerror.KindIO, "write stdin", err)
		}
		return tools.Result{Status: tools.StatusOK, Output: json.RawMessage(fmt.Sprintf(`{"written":%d}`, len(args.Chars)))}, nil
	}
}
