package config

import (
	"fmt"
	"time"
)

// Config describes one contract to serve.
type Config struct {
	// Contract is a path relative to the config file, or a remote location.
	Contract string `yaml:"contract"`
	// CaseFolding matches snake_case handler names to camelCase operation ids. Defaults to true.
	CaseFolding *bool `yaml:"caseFolding"`
	// SkipResponseValidation is either a boolean or a list of operation ids.
	SkipResponseValidation SkipList `yaml:"skipResponseValidation"`
	ECMARegex              bool     `yaml:"ecmaRegex"`
	// ErrorTranslator names a translator registered by the hosting program.
	ErrorTranslator string         `yaml:"errorTranslator"`
	Security        SecurityConfig `yaml:"security"`
	// Concurrency caps in-flight requests per operation, counted across every instance that
	// shares the store.
	Concurrency []ConcurrencyLimit `yaml:"concurrency"`

	// ConfigDir is the directory the config was loaded from.
	ConfigDir string `yaml:"-"`
}

// IsCaseFolding reports whether case folding is enabled.
func (c *Config) IsCaseFolding() bool {
	return c.CaseFolding == nil || *c.CaseFolding
}

// SkipList selects operations whose responses are not validated.
type SkipList struct {
	All bool
	IDs []string
}

// UnmarshalYAML implements custom unmarshaling for SkipList
func (s *SkipList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	// First try to unmarshal as a boolean
	var all bool
	if err := unmarshal(&all); err == nil {
		s.All = all
		return nil
	}

	// If that fails, try to unmarshal as a list of operation ids
	var ids []string
	if err := unmarshal(&ids); err == nil {
		s.IDs = ids
		return nil
	}

	return fmt.Errorf("failed to unmarshal skipResponseValidation as either boolean or list of operation ids")
}

// SecurityConfig configures credential verification for the contract's security schemes.
type SecurityConfig struct {
	Basic   *BasicAuthConfig `yaml:"basic"`
	JWT     *JWTConfig       `yaml:"jwt"`
	APIKeys *APIKeyConfig    `yaml:"apiKeys"`
}

// BasicAuthConfig holds bcrypt password hashes by user name.
type BasicAuthConfig struct {
	Scheme string            `yaml:"scheme"`
	Users  map[string]string `yaml:"users"`
}

// JWTConfig verifies HMAC signed bearer tokens.
type JWTConfig struct {
	Scheme   string `yaml:"scheme"`
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	Leeway   string `yaml:"leeway"`
}

// LeewayDuration parses the configured leeway, which defaults to zero.
func (j *JWTConfig) LeewayDuration() (time.Duration, error) {
	if j.Leeway == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(j.Leeway)
	if err != nil {
		return 0, fmt.Errorf("invalid JWT leeway %q: %w", j.Leeway, err)
	}
	return d, nil
}

// APIKeyConfig accepts a fixed set of keys.
type APIKeyConfig struct {
	Scheme string   `yaml:"scheme"`
	Keys   []string `yaml:"keys"`
}

// ConcurrencyLimit rejects requests to an operation while more than Limit are in flight.
type ConcurrencyLimit struct {
	// Operation is an operation id, or "*" or empty for every operation.
	Operation string `yaml:"operation"`
	Limit     int    `yaml:"limit"`
	// StatusCode is sent when the limit is exceeded. Defaults to 429.
	StatusCode int `yaml:"statusCode"`
}

// AppliesTo reports whether the limit covers the operation.
func (l ConcurrencyLimit) AppliesTo(operationID string) bool {
	return l.Operation == "" || l.Operation == "*" || l.Operation == operationID
}
