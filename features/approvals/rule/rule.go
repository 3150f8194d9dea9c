// Package rule is a programmatic safety.ApprovalProvider that evaluates a
// small, fail-closed rule set instead of prompting a human, grounded on
// the teacher pack's ExecSecurity/ExecAsk mode vocabulary.
package rule

import (
	"context"
	"strings"

	"goa.design/skillsruntime/safety"
)

// Security is the default posture absent a more specific allowlist match.
type Security string

const (
	SecurityDeny      Security = "deny"
	SecurityAllowlist Security = "allowlist"
	SecurityFull      Security = "full"
)

// Provider decides approvals from a static allowlist of leading command
// words, never panicking: any evaluation error degrades to DENIED.
type Provider struct {
	Security  Security
	Allowlist []string
}

// Decide evaluates req.Sanitized (expected to contain a "command" field
// produced by the shell_exec sanitizer) against the allowlist.
func (p *Provider) Decide(_ context.Context, req safety.Request) (d safety.Decision, err error) {
	defer func() {
		if recover() != nil { // fail-closed: any panic here must not crash the run
			d, err = safety.DecisionDenied, nil
		}
	}()

	switch p.Security {
	case SecurityFull:
		return safety.DecisionApproved, nil
	case SecurityDeny:
		return safety.DecisionDenied, nil
	case SecurityAllowlist:
		text := string(req.Sanitized)
		for _, allowed := range p.Allowlist {
			if strings.Contains(text, `"command":"`+allowed) {
				return safety.DecisionApproved, nil
			}
		}
		return safety.DecisionDenied, nil
	default:
		return safety.DecisionDenied, nil
	}
}
