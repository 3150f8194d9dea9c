package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Canonicalize re-serializes data with object keys sorted and no
// insignificant whitespace, so the same logical request always hashes to
// the same approval key regardless of field order. Array order is
// preserved.
func Canonicalize(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("safety: canonicalize: %w", err)
	}
	return json.Marshal(sortValue(v))
}

func sortValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(sortedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, sortedEntry{key: k, value: sortValue(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortValue(e)
		}
		return out
	default:
		return v
	}
}

// sortedMap marshals as a JSON object with keys in the order given, since
// Go's map[string]any would otherwise re-sort (fine) but re-allocate
// (wasteful) — sortedMap lets sortValue compute order once.
type sortedMap []sortedEntry

type sortedEntry struct {
	key   string
	value any
}

func (m sortedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Key computes the approval key for a tool name and its sanitized,
// canonicalized request payload: the hex SHA-256 of the canonical JSON
// object {"sanitized_request": <payload>, "tool": <tool>}.
func Key(tool string, sanitizedCanonical []byte) string {
	toolJSON, _ := json.Marshal(tool)
	payload := append([]byte(`{"sanitized_request":`), sanitizedCanonical...)
	payload = append(payload, `,"tool":`...)
	payload = append(payload, toolJSON...)
	payload = append(payload, '}')
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
