// Package cli is an interactive safety.ApprovalProvider that prompts on
// stdin, mirroring the allow-once/allow-always/deny vocabulary used by
// the teacher pack's exec approval flow.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"goa.design/skillsruntime/safety"
)

// Provider prompts In/Out for a decision on every ASK-routed request.
type Provider struct {
	In  io.Reader
	Out io.Writer
}

func (p *Provider) Decide(_ context.Context, req safety.Request) (safety.Decision, error) {
	fmt.Fprintf(p.Out, "approve %s %s? [y/always/n/abort]: ", req.Tool, string(req.Sanitized))

	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		return safety.DecisionApproved, nil
	case "always", "a":
		return safety.DecisionApprovedForSession, nil
	case "abort":
		return safety.DecisionAbort, nil
	default:
		return safety.DecisionDenied, nil
	}
}
