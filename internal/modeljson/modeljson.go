// Package modeljson parses JSON out of LLM completions. Models often
// wrap their output in Markdown code fences; stripping those is a
// pre-processing step here so callers never do it ad hoc.
package modeljson

import (
	"encoding/json"
	"strings"
)

// Parse strips an optional Markdown code fence from text and
// unmarshals the remainder as a JSON object. When the remainder is not
// itself an object, the span from the first "{" to the last "}" is
// tried once more, which rescues completions that wrap the object in
// prose. The boolean result is false when no object could be parsed;
// callers pick their own fallback (raw-text wrapper, prior value)
// rather than treating that as an error.
func Parse(text string) (map[string]any, bool) {
	cleaned := StripFences(text)
	if cleaned == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj, true
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// StripFences removes a surrounding ```json ... ``` (or bare ```)
// fence if present and trims whitespace. Text without fences passes
// through trimmed.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop a language tag like "json" on the fence line
	if idx := strings.Index(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || isLanguageTag(first) {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
