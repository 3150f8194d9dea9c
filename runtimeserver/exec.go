package runtimeserver

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// ExecSession is one PTY-backed command the runtime server supervises. Its
// master fd is pumped into a bounded ringBuffer by a background goroutine;
// exec.write both writes to the session's stdin and polls the buffer.
type ExecSession struct {
	ID  string
	cmd *exec.Cmd
	pty *os.File
	out *ringBuffer

	mu     sync.Mutex
	closed bool
}

const sessionBufferCapacity = 1 << 20 // 1 MiB of buffered, undrained output

// StartExecSession launches command under a PTY and begins pumping its
// output into a bounded ring buffer.
func StartExecSession(id, command string, args []string, env []string, dir string) (*ExecSession, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	cmd.Env = env

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("runtimeserver: start pty: %w", err)
	}

	sess := &ExecSession{ID: id, cmd: cmd, pty: f, out: newRingBuffer(sessionBufferCapacity)}
	go sess.pump()
	return sess, nil
}

func (s *ExecSession) pump() {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			s.out.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// WriteStdin writes chars to the session's PTY master, which the shell
// running under it sees as stdin.
func (s *ExecSession) WriteStdin(chars string) error {
	_, err := s.pty.Write([]byte(chars))
	return err
}

// Drain returns and clears whatever output has accumulated since the last
// Drain call.
func (s *ExecSession) Drain() []byte {
	return s.out.Drain()
}

// Close terminates the session's process and releases its PTY.
func (s *ExecSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.pty.Close()
}

// ringBuffer is a small bounded byte ring used to buffer a session's PTY
// output between exec.write polls, so a burst of output between two
// client polls is not lost but also cannot grow unbounded.
type ringBuffer struct {
	mu  sync.Mutex
	buf []byte
	cap int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{cap: capacity}
}

func (r *ringBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, p...)
	if len(r.buf) > r.cap {
		r.buf = r.buf[len(r.buf)-r.cap:]
	}
	return len(p), nil
}

func (r *ringBuffer) Drain() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.buf
	r.buf = nil
	return out
}
