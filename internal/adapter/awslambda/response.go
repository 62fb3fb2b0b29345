package awslambda

import (
	"bytes"
	"net/http"
)

// responseRecorder buffers a handler's response for conversion into a Lambda event response.
// A handler that writes nothing produces a 200.
type responseRecorder struct {
	Headers       http.Header
	Body          bytes.Buffer
	StatusCode    int
	writtenStatus bool
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{Headers: make(http.Header), StatusCode: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header {
	return r.Headers
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.writtenStatus {
		r.WriteHeader(http.StatusOK)
	}
	return r.Body.Write(data)
}

// WriteHeader records the status. Only the first call takes effect, as with net/http.
func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.writtenStatus {
		return
	}
	r.StatusCode = statusCode
	r.writtenStatus = true
}
