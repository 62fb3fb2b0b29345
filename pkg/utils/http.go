package utils

import (
	"mime"
	"strings"
)

// ExtractPathParams extracts path parameters from the request path
func ExtractPathParams(requestPath, resourcePath string) map[string]string {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	resourceSegments := strings.Split(strings.Trim(resourcePath, "/"), "/")
	pathParams := make(map[string]string)

	for i, segment := range resourceSegments {
		if i >= len(requestSegments) {
			break
		}
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			paramName := strings.Trim(segment, "{}")
			pathParams[paramName] = requestSegments[i]
		}
	}

	return pathParams
}

// MediaType returns the bare, lower-cased media type of a Content-Type value,
// without parameters such as charset.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsTextMediaType reports whether a body of this media type is textual.
func IsTextMediaType(mediaType string) bool {
	mediaType = MediaType(mediaType)
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return true
	case mediaType == "application/xml", strings.HasSuffix(mediaType, "+xml"):
		return true
	case mediaType == "application/x-www-form-urlencoded":
		return true
	}
	return false
}
