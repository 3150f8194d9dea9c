package filestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/wal/filestore"
)

func TestAppendAndReadPrefixRoundTrip(t *testing.T) {
	s, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventRunStarted, RunID: "run-1"})
	require.NoError(t, err)
	_, err = s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventRunCompleted, RunID: "run-1"})
	require.NoError(t, err)

	recs, err := s.ReadPrefix(ctx, "run-1", -1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, hooks.EventRunStarted, recs[0].Envelope.Type)
	assert.Equal(t, hooks.EventRunCompleted, recs[1].Envelope.Type)
}

func TestForkCopiesPrefixAndRewritesRunID(t *testing.T) {
	s, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventToolCallRequested, RunID: "run-1"})
		require.NoError(t, err)
	}

	require.NoError(t, s.Fork(ctx, "run-1", 1, "run-2"))

	forked, err := s.ReadPrefix(ctx, "run-2", -1)
	require.NoError(t, err)
	require.Len(t, forked, 2)
	for _, r := range forked {
		assert.Equal(t, "run-2", r.Envelope.RunID)
	}
}

func TestReadPrefixMissingRun(t *testing.T) {
	s, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadPrefix(context.Background(), "nope", -1)
	assert.Error(t, err)
}
