package utils

import (
	"reflect"
	"testing"
)

func TestExtractPathParams(t *testing.T) {
	tests := []struct {
		name         string
		requestPath  string
		resourcePath string
		expected     map[string]string
	}{
		{
			name:         "Empty paths",
			requestPath:  "",
			resourcePath: "",
			expected:     map[string]string{},
		},
		{
			name:         "No parameters",
			requestPath:  "/pets/dogs",
			resourcePath: "/pets/dogs",
			expected:     map[string]string{},
		},
		{
			name:         "Single parameter",
			requestPath:  "/pets/123",
			resourcePath: "/pets/{id}",
			expected: map[string]string{
				"id": "123",
			},
		},
		{
			name:         "Multiple parameters",
			requestPath:  "/pets/123/photos/456",
			resourcePath: "/pets/{petId}/photos/{photoId}",
			expected: map[string]string{
				"petId":   "123",
				"photoId": "456",
			},
		},
		{
			name:         "Parameters with trailing slash",
			requestPath:  "/pets/123/",
			resourcePath: "/pets/{id}/",
			expected: map[string]string{
				"id": "123",
			},
		},
		{
			name:         "Mixed static and parameter segments",
			requestPath:  "/api/v1/pets/123/photos/456",
			resourcePath: "/api/v1/pets/{petId}/photos/{photoId}",
			expected: map[string]string{
				"petId":   "123",
				"photoId": "456",
			},
		},
		{
			name:         "Parameters with special characters",
			requestPath:  "/pets/abc-123/photos/def_456",
			resourcePath: "/pets/{petId}/photos/{photoId}",
			expected: map[string]string{
				"petId":   "abc-123",
				"photoId": "def_456",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractPathParams(tt.requestPath, tt.resourcePath)

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractPathParams() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestExtractPathParams_ShortRequestPath(t *testing.T) {
	result := ExtractPathParams("/pets", "/pets/{id}")
	if len(result) != 0 {
		t.Errorf("ExtractPathParams() = %v, want empty map", result)
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "", expected: ""},
		{input: "application/json", expected: "application/json"},
		{input: "application/json; charset=utf-8", expected: "application/json"},
		{input: "Text/Plain;charset=UTF-8", expected: "text/plain"},
		{input: "not a media type;;", expected: "not a media type"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MediaType(tt.input); got != tt.expected {
				t.Errorf("MediaType(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsTextMediaType(t *testing.T) {
	textTypes := []string{"text/plain", "application/json", "application/problem+json", "application/xml; charset=utf-8"}
	for _, mt := range textTypes {
		if !IsTextMediaType(mt) {
			t.Errorf("IsTextMediaType(%q) = false, want true", mt)
		}
	}
	if IsTextMediaType("application/octet-stream") {
		t.Errorf("IsTextMediaType(application/octet-stream) = true, want false")
	}
}
