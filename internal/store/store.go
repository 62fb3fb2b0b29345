package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/imposter-project/contract-shim/pkg/logger"
)

// StoreProvider interface defines the contract for store implementations
type StoreProvider interface {
	InitStores()
	GetValue(storeName, key string) (interface{}, bool)
	StoreValue(storeName, key string, value interface{})
	GetAllValues(storeName, keyPrefix string) map[string]interface{}
	DeleteValue(storeName, key string)
	DeleteStore(storeName string)
}

// Store represents a handle to a specific named store
type Store struct {
	name     string
	provider StoreProvider
}

// Open returns a handle to a specific store held by the provider
func Open(storeName string, provider StoreProvider) *Store {
	return &Store{
		name:     storeName,
		provider: provider,
	}
}

// Name returns the name of the store
func (s *Store) Name() string {
	return s.name
}

// GetValue retrieves a value from the store
func (s *Store) GetValue(key string) (interface{}, bool) {
	return s.provider.GetValue(s.name, key)
}

// StoreValue stores a value in the store
func (s *Store) StoreValue(key string, value interface{}) {
	s.provider.StoreValue(s.name, key, value)
}

// GetAllValues retrieves all values from the store with an optional prefix
func (s *Store) GetAllValues(keyPrefix string) map[string]interface{} {
	return s.provider.GetAllValues(s.name, keyPrefix)
}

// DeleteValue removes a value from the store
func (s *Store) DeleteValue(key string) {
	s.provider.DeleteValue(s.name, key)
}

// Clear removes the entire store
func (s *Store) Clear() {
	s.provider.DeleteStore(s.name)
}

// NewStoreProvider creates and initialises the provider named by driver. An empty driver
// falls back to the SHIM_STORE_DRIVER environment variable, then to the in-memory provider.
func NewStoreProvider(driver string) StoreProvider {
	if driver == "" {
		driver = os.Getenv("SHIM_STORE_DRIVER")
	}

	var provider StoreProvider
	switch driver {
	case "store-dynamodb":
		provider = &DynamoDBStoreProvider{}
	case "store-redis":
		provider = &RedisStoreProvider{}
	case "", "store-inmem":
		provider = &InMemoryStoreProvider{}
	default:
		logger.Warnf("unknown store driver %s, falling back to in-memory store", driver)
		provider = &InMemoryStoreProvider{}
	}
	logger.Debugf("using store provider %T", provider)
	provider.InitStores()
	return provider
}

// PreloadFile loads a JSON object from path and stores each of its members as a value.
func PreloadFile(s *Store, path string) error {
	logger.Infof("preloading store '%s' from file: %s", s.name, path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var items map[string]interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	Preload(s, items)
	return nil
}

// Preload stores each of the given items in the store
func Preload(s *Store, items map[string]interface{}) {
	for k, v := range items {
		s.StoreValue(k, v)
	}
}

func getStoreKeyPrefix() string {
	return os.Getenv("SHIM_STORE_KEY_PREFIX")
}

func applyKeyPrefix(key string) string {
	prefix := getStoreKeyPrefix()
	if prefix != "" {
		return prefix + "." + key
	}
	return key
}

func removeKeyPrefix(key string) string {
	prefix := getStoreKeyPrefix()
	if prefix != "" {
		return strings.TrimPrefix(key, prefix+".")
	}
	return key
}
