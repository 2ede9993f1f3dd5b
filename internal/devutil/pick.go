package devutil

import (
	"encoding/json"
	"strings"
)

// Pick round-trips v through JSON and keeps only the requested keys.
// Keys are matched case-insensitively; missing keys are skipped. With no
// keys the whole object is returned. Used for compact CLI output.
func Pick(v any, keys ...string) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return map[string]any{}
	}
	if len(keys) == 0 {
		return m
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if val, ok := m[k]; ok {
			out[k] = val
			continue
		}
		for mk, val := range m {
			if strings.EqualFold(mk, k) {
				out[mk] = val
				break
			}
		}
	}
	return out
}
