package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in     string
		max    int
		expect string
	}{
		{"Ada Lovelace", 0, "ada-lovelace"},
		{"  Résumé (final) v2.pdf ", 0, "resume-final-v2-pdf"},
		{"---", 0, "x"},
		{"Hello, World!", 0, "hello-world"},
		{"abcdef ghij", 7, "abcdef"},
		{"abcdef ghij", 8, "abcdef-g"},
		{"日本語", 0, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expect, Make(tt.in, tt.max, "x"))
		})
	}
}
