// Package strings holds small slice-of-string helpers used by config parsing.
package strings

import "strings"

// DedupeAndTrim trims every element, drops empties and duplicates, and keeps
// first-occurrence order. Config lists like KAFKA_BROKERS go through this so
// "a, b,,a" reads as {a, b}.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
