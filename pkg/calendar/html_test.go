package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "pool-a: 3", "pool-a: 3"},
		{"inline tags removed", "<b>pool-a</b>: <i>3</i>", "pool-a: 3"},
		{"entities decoded", "pool-a: 3 &amp; more", "pool-a: 3 & more"},
		{"br becomes newline", "pool-a: 3<br>pool-b: 5", "pool-a: 3\npool-b: 5"},
		{"self closing br", "pool-a: 3<br/>pool-b: 5", "pool-a: 3\npool-b: 5"},
		{"paragraphs become lines", "<p>pool-a: 3</p><p>pool-b: 5</p>", "pool-a: 3\npool-b: 5\n"},
		{"links keep text", `<a href="https://example.com">pool-a</a>: 1`, "pool-a: 1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripHTML(tt.input))
		})
	}
}
