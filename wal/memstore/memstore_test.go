package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/wal"
	"goa.design/skillsruntime/wal/memstore"
)

func TestAppendAssignsSequentialSeq(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	r0, err := s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventRunStarted})
	require.NoError(t, err)
	r1, err := s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventRunCompleted})
	require.NoError(t, err)

	assert.Equal(t, int64(0), r0.Seq)
	assert.Equal(t, int64(1), r1.Seq)
}

func TestReadPrefixBounded(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventToolCallRequested})
		require.NoError(t, err)
	}

	recs, err := s.ReadPrefix(ctx, "run-1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(2), recs[len(recs)-1].Seq)

	all, err := s.ReadPrefix(ctx, "run-1", -1)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestReadPrefixUnknownRun(t *testing.T) {
	s := memstore.New()
	_, err := s.ReadPrefix(context.Background(), "missing", -1)
	var notFound *wal.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestForkRewritesRunID(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, "run-1", hooks.Envelope{Type: hooks.EventToolCallRequested, RunID: "run-1"})
		require.NoError(t, err)
	}

	require.NoError(t, s.Fork(ctx, "run-1", 1, "run-2"))

	forked, err := s.ReadPrefix(ctx, "run-2", -1)
	require.NoError(t, err)
	require.Len(t, forked, 2)
	for _, rec := range forked {
		assert.Equal(t, "run-2", rec.Envelope.RunID)
	}

	original, err := s.ReadPrefix(ctx, "run-1", -1)
	require.NoError(t, err)
	assert.Len(t, original, 3, "forking must not mutate the source run")
}
