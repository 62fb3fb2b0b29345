package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/imposter-project/contract-shim/pkg/logger"
	"gopkg.in/yaml.v3"
)

// ServerConfig is the process-wide configuration taken from the environment.
type ServerConfig struct {
	ServerPort string
	ConfigDir  string
	// H2C enables HTTP/2 over cleartext connections.
	H2C bool
}

// LoadServerConfig loads configurations from environment variables
func LoadServerConfig() *ServerConfig {
	port := os.Getenv("SHIM_PORT")
	if port == "" {
		port = "8080" // Default port
	}

	return &ServerConfig{
		ServerPort: port,
		ConfigDir:  os.Getenv("SHIM_CONFIG_DIR"),
		H2C:        strings.EqualFold(os.Getenv("SHIM_H2C"), "true"),
	}
}

var envVarPattern = regexp.MustCompile(`\$\{env\.([A-Z0-9_]+)(:-([^}]*))?\}`)

// LoadConfig loads all shim config files in the specified directory. Files are named
// "<anything>-shim.yaml" or "<anything>-shim.yml".
func LoadConfig(configDir string) ([]Config, error) {
	var configs []Config

	scanRecursive := os.Getenv("SHIM_CONFIG_SCAN_RECURSIVE") == "true"

	err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// Skip subdirectories if not scanning recursively
		if info.IsDir() && path != configDir && !scanRecursive {
			return filepath.SkipDir
		}

		if !info.IsDir() && isConfigFile(info.Name()) {
			logger.Infof("loading config file: %s", path)
			fileConfig, err := parseConfig(path)
			if err != nil {
				return err
			}
			configs = append(configs, *fileConfig)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func isConfigFile(name string) bool {
	return strings.HasSuffix(name, "-shim.yaml") || strings.HasSuffix(name, "-shim.yml")
}

// parseConfig loads and parses a YAML configuration file
func parseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ConfigDir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig parses YAML configuration after substituting environment variables.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(substituteEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if cfg.Contract == "" {
		return nil, fmt.Errorf("no contract specified")
	}
	return &cfg, nil
}

// substituteEnvVars replaces ${env.VAR} and ${env.VAR:-default} with environment variable values
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		envVar := groups[1]
		defaultValue := groups[3]
		if value, exists := os.LookupEnv(envVar); exists {
			return value
		}
		return defaultValue
	})
}
