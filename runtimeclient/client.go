// Package runtimeclient is the thin adapter tool handlers use to reach a
// workspace's runtime server. It connects only to a server already
// registered in server.json with a live PID; it does not start one.
package runtimeclient

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"goa.design/skillsruntime/runtimeserver"
)

// Client talks to one workspace's runtime server over its Unix socket.
type Client struct {
	workspaceDir string
	info         runtimeserver.ServerInfo
	conn         net.Conn
}

// Dial connects to the running server for workspaceDir, returning an
// error if none is registered or the registered PID is dead. Callers that
// want spawn-on-demand should check for that error and start one first.
func Dial(workspaceDir string) (*Client, error) {
	info, err := runtimeserver.ReadServerInfo(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("runtimeclient: no server registered: %w", err)
	}
	if !processAlive(info.PID) {
		return nil, fmt.Errorf("runtimeclient: registered server pid %d is not running", info.PID)
	}
	conn, err := net.DialTimeout("unix", info.SocketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("runtimeclient: dial: %w", err)
	}
	return &Client{workspaceDir: workspaceDir, info: info, conn: conn}, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Call invokes method with params and decodes the result into out.
func (c *Client) Call(method string, params any, out any) error {
	p, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("runtimeclient: marshal params: %w", err)
	}
	req := runtimeserver.Request{Secret: c.info.Secret, Method: method, Params: p}
	if err := runtimeserver.WriteFrame(c.conn, req); err != nil {
		return fmt.Errorf("runtimeclient: write request: %w", err)
	}

	var resp runtimeserver.Response
	if err := runtimeserver.ReadFrame(c.conn, &resp); err != nil {
		return fmt.Errorf("runtimeclient: read response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("runtimeclient: %s", resp.Error)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

// ExecCommand starts a PTY-backed command through exec.start.
func (c *Client) ExecCommand(command string, args []string) (sessionID string, err error) {
	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Call("exec.start", map[string]any{"command": command, "args": args}, &result); err != nil {
		return "", err
	}
	return result.SessionID, nil
}

// WriteStdin sends chars to a running exec session.
func (c *Client) WriteStdin(sessionID, chars string) error {
	return c.Call("exec.write", map[string]any{"session_id": sessionID, "chars": chars}, nil)
}

// SpawnAgent starts a nested agent run through collab.spawn.
func (c *Client) SpawnAgent(task string) (agentID string, err error) {
	var result struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.Call("collab.spawn", map[string]any{"task": task}, &result); err != nil {
		return "", err
	}
	return result.AgentID, nil
}
