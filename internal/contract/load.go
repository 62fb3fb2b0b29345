package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-getter"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/imposter-project/contract-shim/pkg/utils"
	"gopkg.in/yaml.v3"
)

const fetchAttempts = 3

// Load reads a contract from a local file. The extension decides the expected syntax: .json
// must hold valid JSON, .yaml or .yml valid YAML.
func Load(path string) (*Contract, error) {
	if !knownExtension(path) {
		return nil, &shimerr.LoadError{Path: path, Err: shimerr.ErrUnknownExtension}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &shimerr.LoadError{Path: path, Err: err}
	}
	if err := checkSyntax(path, data); err != nil {
		return nil, &shimerr.LoadError{Path: path, Err: err}
	}
	return parse(data, path, filepath.Dir(path))
}

func knownExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func checkSyntax(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if !json.Valid(data) {
			return fmt.Errorf("file is not valid JSON")
		}
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("file is not valid YAML: %w", err)
		}
	default:
		return shimerr.ErrUnknownExtension
	}
	return nil
}

// Resolve loads a contract from a location that is either a local path, relative to baseDir
// when not absolute, or a remote source understood by go-getter (http(s) URLs, s3::, git::).
// Remote sources are fetched into a temporary directory with retries.
func Resolve(ctx context.Context, location string, baseDir string) (*Contract, error) {
	if !isRemote(location) {
		return Load(utils.ResolveRelative(location, baseDir))
	}

	tmpDir, err := os.MkdirTemp("", "contract-shim-*")
	if err != nil {
		return nil, &shimerr.LoadError{Path: location, Err: fmt.Errorf("failed to create temporary directory: %w", err)}
	}
	defer os.RemoveAll(tmpDir)

	dst := filepath.Join(tmpDir, remoteFileName(location))
	logger.Infof("downloading contract from %s", location)

	err = retry.Do(
		func() error {
			return getter.GetFile(dst, location, getter.WithContext(ctx))
		},
		retry.Context(ctx),
		retry.Attempts(fetchAttempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("attempt %d to download contract from %s failed: %v", n+1, location, err)
		}),
	)
	if err != nil {
		return nil, &shimerr.LoadError{Path: location, Err: fmt.Errorf("failed to download contract: %w", err)}
	}
	logger.Debugf("downloaded contract to temporary file: %s", dst)

	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, &shimerr.LoadError{Path: location, Err: err}
	}
	if err := checkSyntax(dst, data); err != nil {
		return nil, &shimerr.LoadError{Path: location, Err: err}
	}
	// relative references in a remote document cannot be followed once the temp dir is gone
	return parse(data, location, "")
}

func isRemote(location string) bool {
	if strings.Contains(location, "::") {
		return true
	}
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// remoteFileName picks a local name for a downloaded contract, keeping its extension so the
// syntax check can run. Sources without a recognisable extension are assumed to be YAML.
func remoteFileName(location string) string {
	src := location
	if idx := strings.Index(src, "::"); idx >= 0 {
		src = src[idx+2:]
	}
	if idx := strings.IndexAny(src, "?#"); idx >= 0 {
		src = src[:idx]
	}
	switch strings.ToLower(filepath.Ext(src)) {
	case ".json":
		return "contract.json"
	case ".yml":
		return "contract.yml"
	default:
		return "contract.yaml"
	}
}
