package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueStrings(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "no duplicates", input: []string{"", "/v1"}, want: []string{"", "/v1"}},
		{name: "duplicates keep first position", input: []string{"/v1", "", "/v1", "/v2", ""}, want: []string{"/v1", "", "/v2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueStrings(tt.input))
		})
	}
}
