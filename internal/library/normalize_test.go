package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"lowercases", "Python", "python"},
		{"trims", "  java  ", "java"},
		{"strips punctuation", "c++ & rust!", "c rust"},
		{"keeps CJK", "计算机系统", "计算机系统"},
		{"mixed latin and CJK", "Python编程", "python编程"},
		{"collapses internal whitespace", "data   structures \t and  algorithms", "data structures and algorithms"},
		{"keeps underscores as word chars", "snake_case", "snake_case"},
		{"punctuation only", "!?,.;:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"Python 编程!", "  Hello,  World  ", "算法科学"}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once))
	}
}
