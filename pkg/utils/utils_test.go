package utils_test

import (
	"testing"

	. "github.com/dbwarden/warden/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestPtr(t *testing.T) {
	s := Ptr("hello")
	require.NotNil(t, s)
	require.Equal(t, "hello", *s)

	n := Ptr(int64(42))
	require.NotNil(t, n)
	require.Equal(t, int64(42), *n)
}

func TestNormalizeDefinition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "crlf to lf",
			input:    "CREATE VIEW v AS\r\nSELECT 1",
			expected: "CREATE VIEW v AS\nSELECT 1",
		},
		{
			name:     "trailing whitespace stripped per line",
			input:    "SELECT 1,   \n  2\t\nFROM t ",
			expected: "SELECT 1,\n  2\nFROM t",
		},
		{
			name:     "leading whitespace preserved",
			input:    "  SELECT 1",
			expected: "  SELECT 1",
		},
		{
			name:     "mixed line endings",
			input:    "a \r\nb\t\r\nc",
			expected: "a\nb\nc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NormalizeDefinition(tt.input))
		})
	}
}
