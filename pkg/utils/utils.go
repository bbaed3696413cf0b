package utils

import "strings"

// Ptr returns a pointer to the provided value v.
// This is useful for creating pointers to literals or temporary values.
func Ptr[T any](v T) *T {
	return &v
}

// NormalizeDefinition canonicalizes an object definition (procedure, function,
// view, or trigger body) for hashing and comparison. CRLF line endings are
// normalized to LF and trailing whitespace is stripped from each line so that
// hashes stay stable across operating systems and client tools.
func NormalizeDefinition(definition string) string {
	if definition == "" {
		return definition
	}

	normalized := strings.ReplaceAll(definition, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.Join(lines, "\n")
}
