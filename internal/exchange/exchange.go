// Package exchange converts between net/http values and the request/response shapes the
// validation engine works with.
package exchange

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/utils"
)

// Parameters holds the request inputs grouped by where they were carried.
type Parameters struct {
	Path   map[string]string
	Query  url.Values
	Header http.Header
	Cookie map[string][]string
}

// Request is a materialised inbound request matched to a contract path template.
type Request struct {
	// HostURL is the scheme and host the request was addressed to.
	HostURL string
	// Path is the escaped request path with the server base path removed.
	Path         string
	PathTemplate string
	Prefix       string
	// Method is lower-case.
	Method     string
	Parameters Parameters
	Body       []byte
	HasBody    bool
	MediaType  string

	ctx    context.Context
	header http.Header
	query  string
}

// AdaptRequest reads the request into a Request. The body of r is consumed and replaced with an
// equivalent reader so that it can be read again by the handler. A body that cannot be read is
// treated as absent.
func AdaptRequest(r *http.Request, pathTemplate string, prefix string) *Request {
	body, hasBody := readBody(r)

	path := strings.TrimPrefix(r.URL.EscapedPath(), prefix)
	if path == "" {
		path = "/"
	}

	return &Request{
		HostURL:      hostURL(r),
		Path:         path,
		PathTemplate: pathTemplate,
		Prefix:       prefix,
		Method:       strings.ToLower(r.Method),
		Parameters: Parameters{
			Path:   pathParams(r, path, pathTemplate),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Cookie: cookies(r),
		},
		Body:      body,
		HasBody:   hasBody,
		MediaType: utils.MediaType(r.Header.Get("Content-Type")),
		ctx:       r.Context(),
		header:    r.Header,
		query:     r.URL.RawQuery,
	}
}

func readBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		logger.Warnf("failed to read body of %s %s, treating it as absent: %v", r.Method, r.URL.Path, err)
		r.Body = http.NoBody
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, len(body) > 0
}

func hostURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + host
}

// pathParams prefers the values captured by the router and falls back to matching the path
// against the template segment by segment.
func pathParams(r *http.Request, path string, pathTemplate string) map[string]string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.URLParams.Keys) > 0 {
		params := make(map[string]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			if key == "*" || i >= len(rctx.URLParams.Values) {
				continue
			}
			value, err := url.PathUnescape(rctx.URLParams.Values[i])
			if err != nil {
				value = rctx.URLParams.Values[i]
			}
			params[key] = value
		}
		return params
	}
	if pathTemplate == "" {
		return map[string]string{}
	}
	params := utils.ExtractPathParams(path, pathTemplate)
	for key, value := range params {
		if unescaped, err := url.PathUnescape(value); err == nil {
			params[key] = unescaped
		}
	}
	return params
}

func cookies(r *http.Request) map[string][]string {
	out := make(map[string][]string)
	for _, c := range r.Cookies() {
		out[c.Name] = append(out[c.Name], c.Value)
	}
	return out
}

// Context returns the context of the originating request.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// HTTPRequest rebuilds an *http.Request addressed to the contract path, without the server base
// path, for the validation engine. Each call returns a request with a fresh body reader.
func (r *Request) HTTPRequest() *http.Request {
	target := r.HostURL + r.Path
	if r.query != "" {
		target += "?" + r.query
	}

	ctx := r.Context()

	var body io.Reader = http.NoBody
	if r.HasBody {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(r.Method), target, body)
	if err != nil {
		// the host URL and path both came from a parsed request, so only a mangled host fails
		logger.Warnf("cannot rebuild request for %s, falling back to a relative URL: %v", target, err)
		req, _ = http.NewRequestWithContext(ctx, strings.ToUpper(r.Method), r.Path, body)
	}
	if r.header != nil {
		req.Header = r.header.Clone()
	}
	return req
}
