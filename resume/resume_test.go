package resume_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/resume"
	"goa.design/skillsruntime/safety"
	"goa.design/skillsruntime/wal/memstore"
)

func TestSummaryResumeProducesResumeMessage(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	env, err := hooks.Encode(hooks.NewRunCompletedEvent("run-1", 1, []byte(`{"message":"did the thing"}`)))
	require.NoError(t, err)
	_, err = store.Append(ctx, "run-1", env)
	require.NoError(t, err)

	seed, err := resume.Resume(ctx, resume.StrategySummary, "run-1", store)
	require.NoError(t, err)
	require.Len(t, seed.History, 1)
	assert.Contains(t, seed.History[0].Content, "did the thing")
}

func TestReplayResumeOnlyRestoresSessionApprovals(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	sessionEnv, err := hooks.Encode(hooks.NewApprovalDecidedEvent("run-1", 1, "key-session", string(safety.DecisionApprovedForSession), "provider"))
	require.NoError(t, err)
	_, err = store.Append(ctx, "run-1", sessionEnv)
	require.NoError(t, err)

	onceEnv, err := hooks.Encode(hooks.NewApprovalDecidedEvent("run-1", 2, "key-once", string(safety.DecisionApproved), "provider"))
	require.NoError(t, err)
	_, err = store.Append(ctx, "run-1", onceEnv)
	require.NoError(t, err)

	seed, err := resume.Resume(ctx, resume.StrategyReplay, "run-1", store)
	require.NoError(t, err)
	assert.True(t, seed.SessionApproved["key-session"])
	assert.False(t, seed.SessionApproved["key-once"])
}

func TestForkDelegatesToStore(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	env, err := hooks.Encode(hooks.NewRunStartedEvent("run-1", 1, "task"))
	require.NoError(t, err)
	_, err = store.Append(ctx, "run-1", env)
	require.NoError(t, err)

	require.NoError(t, resume.Fork(ctx, store, "run-1", 0, "run-2"))
	recs, err := store.ReadPrefix(ctx, "run-2", -1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
