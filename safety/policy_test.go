package safety_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/safety"
)

func TestComplexShellIntentForcesAsk(t *testing.T) {
	policy := safety.NewPolicy(safety.Rule{Tool: "shell_command", Leading: "ls", Mode: safety.ModeAllow})
	intent, err := safety.ParseIntent("ls -la && rm -rf /")
	require.NoError(t, err)
	require.True(t, intent.IsComplex)

	mode := policy.Decide("shell_command", intent, safety.ModeDeny)
	assert.Equal(t, safety.ModeAsk, mode, "a complex shell line must force ASK even when the leading word is allowlisted")
}

func TestSimpleAllowlistedLeadingWordAllows(t *testing.T) {
	policy := safety.NewPolicy(safety.Rule{Tool: "shell_command", Leading: "ls", Mode: safety.ModeAllow})
	intent, err := safety.ParseIntent("ls -la")
	require.NoError(t, err)
	require.False(t, intent.IsComplex)

	mode := policy.Decide("shell_command", intent, safety.ModeDeny)
	assert.Equal(t, safety.ModeAllow, mode)
}

func TestUnmatchedRuleFallsBackToDefault(t *testing.T) {
	policy := safety.NewPolicy(safety.Rule{Tool: "shell_command", Leading: "ls", Mode: safety.ModeAllow})
	intent, err := safety.ParseIntent("rm file.txt")
	require.NoError(t, err)

	mode := policy.Decide("shell_command", intent, safety.ModeAsk)
	assert.Equal(t, safety.ModeAsk, mode)
}

func TestCanonicalizeSortsKeysDeterministically(t *testing.T) {
	a, err := safety.Canonicalize([]byte(`{"b":1,"a":2}`))
	require.NoError(t, err)
	b, err := safety.Canonicalize([]byte(`{"a":2,"b":1}`))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestKeyIsStableForSameInput(t *testing.T) {
	canon, err := safety.Canonicalize([]byte(`{"command":"ls"}`))
	require.NoError(t, err)
	k1 := safety.Key("shell_command", canon)
	k2 := safety.Key("shell_command", canon)
	assert.Equal(t, k1, k2)
}

func TestSanitizeShellExecDropsEnvValuesAndStdinContent(t *testing.T) {
	s := safety.NewSanitizer()
	out, err := s.Sanitize("shell_exec", []byte(`{"command":"ls -la","env":{"SECRET":"topsecret"},"stdin":"hello"}`))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "topsecret")
	assert.NotContains(t, string(out), "hello")
	assert.Contains(t, string(out), "ls -la")
	assert.Contains(t, string(out), "SECRET")
}
