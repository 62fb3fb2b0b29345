package store

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/imposter-project/contract-shim/pkg/logger"
)

type InMemoryStoreProvider struct {
	mu     sync.RWMutex
	stores map[string]*storeData
	ttl    time.Duration
}

type storeData struct {
	data map[string]entry
}

type entry struct {
	value   interface{}
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// InitStores resets the provider. SHIM_STORE_INMEMORY_TTL sets an expiry, in seconds,
// applied to every value.
func (p *InMemoryStoreProvider) InitStores() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stores = make(map[string]*storeData)
	p.ttl = 0

	if raw := os.Getenv("SHIM_STORE_INMEMORY_TTL"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			logger.Warnf("ignoring invalid in-memory store TTL: %s", raw)
			return
		}
		p.ttl = time.Duration(seconds) * time.Second
	}
}

func (p *InMemoryStoreProvider) GetValue(storeName, key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	store, ok := p.stores[storeName]
	if !ok {
		return nil, false
	}
	e, found := store.data[applyKeyPrefix(key)]
	if !found || e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

func (p *InMemoryStoreProvider) StoreValue(storeName, key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.stores[storeName]; !ok {
		p.stores[storeName] = &storeData{data: make(map[string]entry)}
	}
	e := entry{value: value}
	if p.ttl > 0 {
		e.expires = time.Now().Add(p.ttl)
	}
	p.stores[storeName].data[applyKeyPrefix(key)] = e
}

func (p *InMemoryStoreProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	store, ok := p.stores[storeName]
	if !ok {
		return nil
	}
	now := time.Now()
	result := make(map[string]interface{})
	keyPrefix = applyKeyPrefix(keyPrefix)
	for k, e := range store.data {
		if strings.HasPrefix(k, keyPrefix) && !e.expired(now) {
			result[removeKeyPrefix(k)] = e.value
		}
	}
	return result
}

func (p *InMemoryStoreProvider) DeleteValue(storeName, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if store, ok := p.stores[storeName]; ok {
		delete(store.data, applyKeyPrefix(key))
	}
}

func (p *InMemoryStoreProvider) DeleteStore(storeName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, storeName)
}
