package runtimeserver

import (
	"context"
	"sync"

	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/loop"
)

// ChildAgent is a nested run spawned by collab.spawn. When SpawnChildAgent
// is given parentEmit, it records a run_started event on the parent run
// whose task is "spawn:<child run ID>"; the child's own events go through
// the emitter in its loop.Config.
type ChildAgent struct {
	ID  string
	run *loop.Run

	mu       sync.Mutex
	terminal *loop.Terminal
	done     chan struct{}
}

// SpawnChildAgent starts a nested run in its own goroutine and returns a
// handle the parent can wait on or cancel.
func SpawnChildAgent(ctx context.Context, parentRunID string, cfg loop.Config, task string, parentEmit func(context.Context, hooks.Event) error) *ChildAgent {
	run := loop.NewRun(cfg)
	child := &ChildAgent{ID: run.ID(), run: run, done: make(chan struct{})}

	if parentEmit != nil {
		_ = parentEmit(ctx, hooks.NewRunStartedEvent(parentRunID, 0, "spawn:"+run.ID()))
	}

	go func() {
		term := run.Stream(ctx, task)
		child.mu.Lock()
		child.terminal = &term
		child.mu.Unlock()
		close(child.done)
	}()
	return child
}

// Wait blocks until the child agent reaches a terminal state or ctx is
// cancelled.
func (c *ChildAgent) Wait(ctx context.Context) (loop.Terminal, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return *c.terminal, nil
	case <-ctx.Done():
		return loop.Terminal{}, ctx.Err()
	}
}
