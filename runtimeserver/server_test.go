package runtimeserver_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/runtimeserver"
)

func TestStartWritesServerJSONWithRestrictedPermissions(t *testing.T) {
	dir := t.TempDir()
	srv, err := runtimeserver.Start(dir, 0, nil)
	require.NoError(t, err)
	defer srv.Close()

	info, err := runtimeserver.ReadServerInfo(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Secret)
	assert.Equal(t, info.SocketPath, srv.Addr())

	st, err := os.Stat(filepath.Join(dir, ".skillsruntime", "server.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
}

func TestIdleExpiredHonorsTimeout(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	srv, err := runtimeserver.Start(dir, time.Minute, func() time.Time { return now })
	require.NoError(t, err)
	defer srv.Close()

	assert.False(t, srv.IdleExpired(now.Add(30*time.Second)))
	assert.True(t, srv.IdleExpired(now.Add(2*time.Minute)))
}

func TestFrameRoundTrip(t *testing.T) {
	client, server := newPipeConns(t)
	defer client.Close()
	defer server.Close()

	go func() {
		_ = runtimeserver.WriteFrame(server, runtimeserver.Response{OK: true, Result: json.RawMessage(`{"x":1}`)})
	}()

	var resp runtimeserver.Response
	require.NoError(t, runtimeserver.ReadFrame(client, &resp))
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"x":1}`, string(resp.Result))
}
