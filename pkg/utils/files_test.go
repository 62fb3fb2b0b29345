package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		baseDir string
		want    string
	}{
		{name: "relative to base", path: "api.yaml", baseDir: "/contracts", want: filepath.Join("/contracts", "api.yaml")},
		{name: "nested relative", path: "v1/../v2/api.yaml", baseDir: "/contracts", want: filepath.Join("/contracts", "v2", "api.yaml")},
		{name: "absolute", path: "/abs/api.yaml", baseDir: "/contracts", want: "/abs/api.yaml"},
		{name: "no base", path: "./api.yaml", want: "api.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRelative(tt.path, tt.baseDir))
		})
	}
}
