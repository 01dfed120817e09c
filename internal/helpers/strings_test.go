package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAndTrim(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"cpu", "cuda"}, SplitAndTrim(" cpu , cuda ,, ", ","))
	assert.Empty(t, SplitAndTrim("", ","))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"abcdefghij", 6, "abc..."},
		{"abcdef", 2, "ab"},
		{"abcdef", 0, "abcdef"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n), tt.in)
	}
}
