package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/utils"
)

// Response is the transport response produced by a handler or an error translator.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	MediaType  string
}

// JSON encodes v as the body of a response with the given status.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response body: %w", err)
	}
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
		MediaType:  "application/json",
	}, nil
}

// Text builds a plain text response.
func Text(status int, s string) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       []byte(s),
		MediaType:  "text/plain",
	}
}

// NoContent builds a response without a body.
func NoContent(status int) *Response {
	return &Response{StatusCode: status, Header: make(http.Header)}
}

// WithHeader sets a header on the response and returns it.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// ContentType returns the value of the Content-Type header to send.
func (r *Response) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if r.MediaType == "" {
		return ""
	}
	if utils.IsTextMediaType(r.MediaType) && r.MediaType != "application/json" {
		return r.MediaType + "; charset=utf-8"
	}
	return r.MediaType
}

func (r *Response) status() int {
	if r.StatusCode == 0 {
		return http.StatusOK
	}
	return r.StatusCode
}

// WriteTo writes the response to w.
func (r *Response) WriteTo(w http.ResponseWriter) {
	for key, values := range r.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if ct := r.ContentType(); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(r.status())
	if len(r.Body) > 0 {
		if _, err := w.Write(r.Body); err != nil {
			logger.Warnf("failed to write response body: %v", err)
		}
	}
}

// AdaptResponse converts the response into an *http.Response answering req, for validation.
func AdaptResponse(r *Response, req *http.Request) *http.Response {
	header := make(http.Header, len(r.Header)+1)
	for key, values := range r.Header {
		header[key] = append([]string(nil), values...)
	}
	if ct := r.ContentType(); ct != "" {
		header.Set("Content-Type", ct)
	}
	header.Set("Content-Length", strconv.Itoa(len(r.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.status(), http.StatusText(r.status())),
		StatusCode:    r.status(),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}
