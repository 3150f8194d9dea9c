// Package scripted is a deterministic safety.ApprovalProvider for tests:
// it answers each request from a pre-programmed sequence of decisions.
package scripted

import (
	"context"
	"fmt"
	"sync"

	"goa.design/skillsruntime/safety"
)

// Provider answers Decide calls from Script in order, repeating the final
// entry once the script is exhausted.
type Provider struct {
	Script []safety.Decision

	mu sync.Mutex
	i  int
}

func (p *Provider) Decide(context.Context, safety.Request) (safety.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.Script) == 0 {
		return "", fmt.Errorf("scripted: empty script")
	}
	d := p.Script[p.i]
	if p.i < len(p.Script)-1 {
		p.i++
	}
	return d, nil
}
