package awslambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/imposter-project/contract-shim/internal/adapter"
	"github.com/imposter-project/contract-shim/pkg/logger"
)

// DefaultConfigDir is used when SHIM_CONFIG_DIR is not set in the Lambda environment
const DefaultConfigDir = "/var/task/config"

// LambdaAdapter represents the AWS Lambda runtime adapter
type LambdaAdapter struct {
	handler http.Handler
}

// NewAdapter creates a new Lambda adapter instance
func NewAdapter(handler http.Handler) adapter.Adapter {
	return &LambdaAdapter{handler: handler}
}

// Start begins the Lambda runtime
func (a *LambdaAdapter) Start() error {
	lambda.Start(a.HandleLambdaRequest)
	return nil
}

// HandleLambdaRequest handles API Gateway proxy and Function URL events.
func (a *LambdaAdapter) HandleLambdaRequest(ctx context.Context, req json.RawMessage) (interface{}, error) {
	var apiGatewayReq events.APIGatewayProxyRequest
	var lambdaFunctionURLReq events.LambdaFunctionURLRequest

	if err := json.Unmarshal(req, &apiGatewayReq); err == nil && apiGatewayReq.HTTPMethod != "" {
		return a.handleAPIGatewayProxyRequest(ctx, apiGatewayReq), nil
	} else if err := json.Unmarshal(req, &lambdaFunctionURLReq); err == nil && lambdaFunctionURLReq.RequestContext.HTTP.Method != "" {
		return a.handleLambdaFunctionURLRequest(ctx, lambdaFunctionURLReq), nil
	}
	return events.LambdaFunctionURLResponse{StatusCode: http.StatusBadRequest, Body: "Unsupported request type"}, nil
}

func (a *LambdaAdapter) handleAPIGatewayProxyRequest(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	query := url.Values{}
	for key, values := range req.MultiValueQueryStringParameters {
		query[key] = values
	}
	for key, value := range req.QueryStringParameters {
		if _, ok := query[key]; !ok {
			query.Set(key, value)
		}
	}

	httpReq, err := convertLambdaRequestToHTTPRequest(ctx, req.HTTPMethod, req.Path, query.Encode(), req.Headers, req.Body, req.IsBase64Encoded)
	if err != nil {
		logger.Warnf("failed to convert API Gateway request: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Failed to convert request"}
	}

	recorder := a.serve(httpReq)
	return events.APIGatewayProxyResponse{
		StatusCode:        recorder.StatusCode,
		Headers:           convertHTTPHeaderToMap(recorder.Headers),
		MultiValueHeaders: recorder.Headers,
		Body:              recorder.Body.String(),
	}
}

func (a *LambdaAdapter) handleLambdaFunctionURLRequest(ctx context.Context, req events.LambdaFunctionURLRequest) events.LambdaFunctionURLResponse {
	httpReq, err := convertLambdaRequestToHTTPRequest(ctx, req.RequestContext.HTTP.Method, req.RawPath, req.RawQueryString, req.Headers, req.Body, req.IsBase64Encoded)
	if err != nil {
		logger.Warnf("failed to convert Function URL request: %v", err)
		return events.LambdaFunctionURLResponse{StatusCode: http.StatusBadRequest, Body: "Failed to convert request"}
	}

	recorder := a.serve(httpReq)
	return events.LambdaFunctionURLResponse{
		StatusCode: recorder.StatusCode,
		Headers:    convertHTTPHeaderToMap(recorder.Headers),
		Body:       recorder.Body.String(),
	}
}

func (a *LambdaAdapter) serve(req *http.Request) *responseRecorder {
	logRequest(req)
	recorder := newResponseRecorder()
	a.handler.ServeHTTP(recorder, req)
	logResponse(recorder)
	return recorder
}

// convertLambdaRequestToHTTPRequest converts a Lambda request to an http.Request.
func convertLambdaRequestToHTTPRequest(ctx context.Context, method, path, rawQuery string, headers map[string]string, body string, base64Body bool) (*http.Request, error) {
	if base64Body {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, err
		}
		body = string(decoded)
	}

	target := path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
	}
	return httpReq, nil
}

// convertHTTPHeaderToMap converts http.Header to a map[string]string.
func convertHTTPHeaderToMap(header http.Header) map[string]string {
	result := make(map[string]string)
	for key, values := range header {
		result[key] = strings.Join(values, ",")
	}
	return result
}

// logRequest logs the incoming HTTP request at TRACE level
func logRequest(req *http.Request) {
	logger.Tracef("request: %s %s", req.Method, req.URL.String())
}

// logResponse logs the outgoing HTTP response at TRACE level
func logResponse(resp *responseRecorder) {
	logger.Tracef("response: %d %s", resp.StatusCode, &resp.Body)
}
