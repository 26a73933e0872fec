package tools

import (
	"time"

	"dealflow/internal/collab"
)

// Argument accessors for tool handlers. Schema validation runs before a
// handler sees the arguments, so these mostly coerce JSON decoding quirks
// (numbers arriving as float64, arrays as []any).

// StringArg returns the string argument or its fallback when absent.
func StringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

// IntArg returns the integer argument or its fallback when absent.
func IntArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// TimeArg parses an RFC 3339 (or date-time without zone) string argument.
func TimeArg(args map[string]any, key string) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return time.Time{}, collab.NewError(collab.CodeInvalidInput, "%s is required", key)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, collab.NewError(collab.CodeInvalidInput, "%s: cannot parse %q as a timestamp", key, raw)
}

// StringSliceArg returns a string-array argument.
func StringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringMapArg returns an object argument with string values.
func StringMapArg(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
