package adapter

import (
	"os"
	"strings"
	"sync"
)

// Mode represents the runtime mode of the application
type Mode int

const (
	ModeUnknown Mode = iota
	ModeLambda
	ModeHTTPServer
)

func (m Mode) String() string {
	switch m {
	case ModeLambda:
		return "lambda"
	case ModeHTTPServer:
		return "http"
	default:
		return "unknown"
	}
}

var (
	currentMode Mode
	modeOnce    sync.Once
)

// DetectMode determines the runtime mode once. SHIM_MODE ("lambda" or "http") takes precedence
// over detection of the Lambda environment.
func DetectMode() Mode {
	modeOnce.Do(func() {
		currentMode = modeFromEnv()
	})
	return currentMode
}

func modeFromEnv() Mode {
	switch strings.ToLower(os.Getenv("SHIM_MODE")) {
	case "lambda":
		return ModeLambda
	case "http":
		return ModeHTTPServer
	}
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return ModeLambda
	}
	return ModeHTTPServer
}

// IsLambda returns true if running in AWS Lambda mode
func IsLambda() bool {
	return DetectMode() == ModeLambda
}

// IsHTTPServer returns true if running in HTTP server mode
func IsHTTPServer() bool {
	return DetectMode() == ModeHTTPServer
}
