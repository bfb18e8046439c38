package graph

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseOrDefault decodes a model's structured JSON output into dst. Model
// output is frequently wrapped in prose or code fences and may be mildly
// malformed, so the raw text is trimmed to its outermost JSON object and run
// through jsonrepair before decoding. It returns false, leaving dst
// untouched, when nothing usable can be recovered; callers keep their safe
// defaults instead of failing the run.
func ParseOrDefault(raw string, dst any) bool {
	candidate := extractObject(raw)
	if candidate == "" {
		return false
	}

	if json.Unmarshal([]byte(candidate), dst) == nil {
		return true
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(repaired), dst) == nil
}

// extractObject returns the outermost {...} span of raw, stripping prose and
// code fences around it.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
