package adapter

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/imposter-project/contract-shim/internal/config"
	"github.com/imposter-project/contract-shim/internal/system"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shim"
)

// Host serves several applications from one handler. A request goes to the first application
// with a bound route for it.
type Host struct {
	apps []*shim.Application
}

// NewHost combines applications into one handler.
func NewHost(apps ...*shim.Application) *Host {
	return &Host{apps: apps}
}

// Applications returns the hosted applications in load order.
func (h *Host) Applications() []*shim.Application {
	return h.apps
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, app := range h.apps {
		if app.Handles(r) {
			app.ServeHTTP(w, r)
			return
		}
	}
	if len(h.apps) == 0 {
		http.NotFound(w, r)
		return
	}
	// the first application decides between 404 and 405
	h.apps[0].ServeHTTP(w, r)
}

// InitialiseShim loads every shim config in the config directories and builds one application
// per config. The directories come from configDirArg or SHIM_CONFIG_DIR, comma separated.
func InitialiseShim(ctx context.Context, configDirArg string, translators map[string]shim.ErrorTranslator, opts ...shim.Option) (*config.ServerConfig, *Host, error) {
	logger.Infof("starting contract-shim instance %s...", system.InstanceID())

	serverConfig := config.LoadServerConfig()
	configDirs, err := getConfigDirs(configDirArg, serverConfig)
	if err != nil {
		return nil, nil, err
	}

	var apps []*shim.Application
	for _, configDir := range configDirs {
		if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
			return nil, nil, fmt.Errorf("specified path %s is not a valid directory", configDir)
		}

		cfgs, err := config.LoadConfig(configDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load configs from %s: %w", configDir, err)
		}
		for i := range cfgs {
			app, err := shim.FromConfig(ctx, &cfgs[i], translators, opts...)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to serve contract %s: %w", cfgs[i].Contract, err)
			}
			apps = append(apps, app)
		}
	}
	if len(apps) == 0 {
		return nil, nil, fmt.Errorf("no shim config files found in %s", strings.Join(configDirs, ", "))
	}
	return serverConfig, NewHost(apps...), nil
}

func getConfigDirs(configDirArg string, serverConfig *config.ServerConfig) ([]string, error) {
	configDirRaw := configDirArg
	if configDirRaw == "" {
		configDirRaw = serverConfig.ConfigDir
	}
	if configDirRaw == "" {
		return nil, fmt.Errorf("config directory path must be provided either as an argument or via SHIM_CONFIG_DIR environment variable")
	}
	var configDirs []string
	for _, dir := range strings.Split(configDirRaw, ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			configDirs = append(configDirs, dir)
		}
	}
	return configDirs, nil
}
