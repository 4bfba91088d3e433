package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation and digits", "Hello,   World!! 42", []string{"hello", "world"}},
		{"empty", "", []string{}},
		{"only symbols", "42 -- !!", []string{}},
		{"removed runs join letters", "don't re-use", []string{"dont", "reuse"}},
		{"tabs and newlines", "the\tcat\n\nsat", []string{"the", "cat", "sat"}},
		{"non ascii letters dropped", "café naïve", []string{"caf", "nave"}},
		{"mixed case", "ThE CAT", []string{"the", "cat"}},
		{"information separators", "alpha\x1fbeta\x1cgamma\x1ddelta\x1eeps", []string{"alpha", "beta", "gamma", "delta", "eps"}},
		{"unicode spaces", "one\u00a0two\u2003three\u0085four", []string{"one", "two", "three", "four"}},
		{"other control characters removed", "ab\x1bcd\x00ef", []string{"abcdef"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Len(t, got, len(tt.want))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"the quick brown fox",
		"  Jumps   over\tthe LAZY dog  ",
		"a",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(strings.Join(once, " "))
		assert.Equal(t, len(once), len(twice), in)
		for i := range once {
			assert.Equal(t, once[i], twice[i])
		}
	}
}
