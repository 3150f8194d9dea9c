package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SanitizeFunc strips secrets and raw payload bytes from a tool's argument
// JSON, replacing them with sizes and fingerprints, before the result is
// shown to an approval provider or persisted as an approval key input.
type SanitizeFunc func(args json.RawMessage) (json.RawMessage, error)

// Sanitizer is the recipe table keyed by SafetyDescriptor.Class.
type Sanitizer struct {
	recipes map[string]SanitizeFunc
}

// NewSanitizer returns a Sanitizer preloaded with the built-in recipes.
func NewSanitizer() *Sanitizer {
	s := &Sanitizer{recipes: make(map[string]SanitizeFunc)}
	s.Register("shell_exec", sanitizeShellExec)
	s.Register("shell_command", sanitizeShellExec)
	s.Register("exec_command", sanitizeShellExec)
	s.Register("write_stdin", sanitizeWriteStdin)
	s.Register("file_write", sanitizeFileWrite)
	s.Register("apply_patch", sanitizeApplyPatch)
	s.Register("skill_exec", sanitizeShellExec)
	return s
}

// Register adds or replaces the recipe for class.
func (s *Sanitizer) Register(class string, fn SanitizeFunc) {
	s.recipes[class] = fn
}

// Sanitize applies the recipe for class to args. A class with no recipe
// passes args through unchanged; this includes tools with Class == "",
// which Gate.Check still routes through here.
func (s *Sanitizer) Sanitize(class string, args json.RawMessage) (json.RawMessage, error) {
	fn, ok := s.recipes[class]
	if !ok {
		return args, nil
	}
	return fn(args)
}

func fingerprint(b []byte) (size int, sha string) {
	sum := sha256.Sum256(b)
	return len(b), hex.EncodeToString(sum[:])
}

func decodeArgs(args json.RawMessage) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return nil, fmt.Errorf("safety: decode args: %w", err)
	}
	return m, nil
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// sanitizeShellExec keeps the command line (needed for policy matching on
// the leading word) and env key names, but drops env values and stdin
// content, replacing them with size/fingerprint.
func sanitizeShellExec(args json.RawMessage) (json.RawMessage, error) {
	m, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if cmd, ok := stringField(m, "command"); ok {
		out["command"] = cmd
	}
	if env, ok := m["env"].(map[string]any); ok {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		out["env_keys"] = keys
	}
	if stdin, ok := stringField(m, "stdin"); ok {
		size, sum := fingerprint([]byte(stdin))
		out["stdin_size"] = size
		out["stdin_sha256"] = sum
	}
	return json.Marshal(out)
}

func sanitizeWriteStdin(args json.RawMessage) (json.RawMessage, error) {
	m, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if sid, ok := stringField(m, "session_id"); ok {
		out["session_id"] = sid
	}
	if chars, ok := stringField(m, "chars"); ok {
		size, sum := fingerprint([]byte(chars))
		out["chars_size"] = size
		out["chars_sha256"] = sum
	}
	return json.Marshal(out)
}

func sanitizeFileWrite(args json.RawMessage) (json.RawMessage, error) {
	m, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if path, ok := stringField(m, "path"); ok {
		out["path"] = path
	}
	if content, ok := stringField(m, "content"); ok {
		size, sum := fingerprint([]byte(content))
		out["content_size"] = size
		out["content_sha256"] = sum
	}
	return json.Marshal(out)
}

func sanitizeApplyPatch(args json.RawMessage) (json.RawMessage, error) {
	m, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if patch, ok := stringField(m, "patch"); ok {
		size, sum := fingerprint([]byte(patch))
		out["patch_size"] = size
		out["patch_sha256"] = sum
	}
	return json.Marshal(out)
}
