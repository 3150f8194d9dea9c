package safety_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/safety"
)

type scriptedProvider struct {
	decisions []safety.Decision
	i         int
}

func (s *scriptedProvider) Decide(context.Context, safety.Request) (safety.Decision, error) {
	d := s.decisions[s.i]
	if s.i < len(s.decisions)-1 {
		s.i++
	}
	return d, nil
}

func TestApprovedForSessionIsCachedWithoutReaskingProvider(t *testing.T) {
	provider := &scriptedProvider{decisions: []safety.Decision{safety.DecisionApprovedForSession}}
	approvals := safety.NewApprovals(provider)

	ctx := context.Background()
	d1, reason1, err := approvals.Resolve(ctx, "key-1", safety.Request{Tool: "shell_exec"}, nil)
	require.NoError(t, err)
	assert.Equal(t, safety.DecisionApprovedForSession, d1)
	assert.Equal(t, "provider", reason1)

	provider.decisions = []safety.Decision{safety.DecisionDenied}
	missed := false
	d2, reason2, err := approvals.Resolve(ctx, "key-1", safety.Request{Tool: "shell_exec"}, func() { missed = true })
	require.NoError(t, err)
	assert.Equal(t, safety.DecisionApprovedForSession, d2, "a session approval must not re-consult the provider")
	assert.Equal(t, "cached", reason2)
	assert.False(t, missed, "onMiss must not fire on a cache hit")
}

func TestRepeatedDenialsTripLoopGuard(t *testing.T) {
	provider := &scriptedProvider{decisions: []safety.Decision{safety.DecisionDenied}}
	approvals := safety.NewApprovals(provider)
	ctx := context.Background()

	var lastErr error
	for i := 0; i < 3; i++ {
		_, _, lastErr = approvals.Resolve(ctx, "key-1", safety.Request{Tool: "shell_exec"}, nil)
	}
	assert.ErrorIs(t, lastErr, safety.ErrLoopGuard)
}
