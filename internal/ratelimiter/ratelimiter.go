package ratelimiter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/imposter-project/contract-shim/internal/config"
	"github.com/imposter-project/contract-shim/internal/store"
	"github.com/imposter-project/contract-shim/internal/system"
	"github.com/imposter-project/contract-shim/pkg/logger"
)

const (
	defaultTTL           = 5 * time.Minute
	rateLimiterStoreName = "rate_limiter"
	activityKeyPrefix    = "activity:"
)

// ResourceActivity is the number of requests one instance has in flight for an operation
type ResourceActivity struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Limiter counts in-flight requests per operation in a store, so that instances sharing a
// Redis or DynamoDB store enforce one limit between them. Activity not refreshed within the TTL
// is treated as abandoned.
type Limiter struct {
	store      *store.Store
	instanceID string
	ttl        time.Duration
	mu         sync.Mutex
}

// NewLimiter creates a limiter backed by the provider. SHIM_RATE_LIMITER_TTL sets the activity
// TTL in seconds.
func NewLimiter(storeProvider store.StoreProvider) *Limiter {
	return NewLimiterWithTTL(storeProvider, getTTLFromEnv())
}

// NewLimiterWithTTL creates a limiter with a custom activity TTL
func NewLimiterWithTTL(storeProvider store.StoreProvider, ttl time.Duration) *Limiter {
	return &Limiter{
		store:      store.Open(rateLimiterStoreName, storeProvider),
		instanceID: system.InstanceID(),
		ttl:        ttl,
	}
}

// Acquire counts a request against operationID. When counting it would exceed one of the
// limits, nothing is counted and the highest exceeded limit is returned.
func (l *Limiter) Acquire(operationID string, limits []config.ConcurrencyLimit) *config.ConcurrencyLimit {
	if len(limits) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	futureTotal := l.totalActive(operationID) + 1
	if matched := findMatchingLimit(futureTotal, limits); matched != nil {
		logger.Infof("concurrency limit exceeded for operation %s: %d > %d", operationID, futureTotal, matched.Limit)
		return matched
	}

	if err := l.adjust(operationID, 1); err != nil {
		// fail open
		logger.Warnf("failed to count request for operation %s: %v", operationID, err)
	}
	return nil
}

// Release uncounts a request previously admitted by Acquire
func (l *Limiter) Release(operationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.adjust(operationID, -1); err != nil {
		logger.Warnf("failed to release request for operation %s: %v", operationID, err)
	}
}

// Active returns the number of requests in flight for the operation across all instances
func (l *Limiter) Active(operationID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalActive(operationID)
}

// Middleware returns a per-operation middleware factory enforcing the limits that apply to each
// operation. Operations without limits are left unwrapped.
func (l *Limiter) Middleware(limits []config.ConcurrencyLimit) func(operationID string) func(http.Handler) http.Handler {
	return func(operationID string) func(http.Handler) http.Handler {
		var applicable []config.ConcurrencyLimit
		for _, limit := range limits {
			if limit.AppliesTo(operationID) {
				applicable = append(applicable, limit)
			}
		}
		if len(applicable) == 0 {
			return nil
		}

		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if exceeded := l.Acquire(operationID, applicable); exceeded != nil {
					status := exceeded.StatusCode
					if status == 0 {
						status = http.StatusTooManyRequests
					}
					http.Error(w, http.StatusText(status), status)
					return
				}
				defer l.Release(operationID)
				next.ServeHTTP(w, r)
			})
		}
	}
}

// findMatchingLimit returns the highest limit that count exceeds
func findMatchingLimit(count int, limits []config.ConcurrencyLimit) *config.ConcurrencyLimit {
	sorted := make([]config.ConcurrencyLimit, len(limits))
	copy(sorted, limits)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Limit < sorted[j].Limit
	})

	var matched *config.ConcurrencyLimit
	for i := range sorted {
		if count > sorted[i].Limit {
			matched = &sorted[i]
		}
	}
	return matched
}

// totalActive sums the unexpired activity of every instance, deleting expired entries.
func (l *Limiter) totalActive(operationID string) int {
	total := 0
	for key, value := range l.store.GetAllValues(activityKeyPrefixFor(operationID)) {
		activity, err := parseResourceActivity(value)
		if err != nil {
			logger.Debugf("ignoring unreadable activity %s: %v", key, err)
			continue
		}
		if time.Since(activity.Timestamp) > l.ttl {
			l.store.DeleteValue(key)
			logger.Debugf("cleaned up expired resource activity: %s", key)
			continue
		}
		total += activity.Count
	}
	return total
}

// adjust changes this instance's count for the operation, removing the entry at zero
func (l *Limiter) adjust(operationID string, delta int) error {
	key := activityKey(operationID, l.instanceID)

	current := ResourceActivity{}
	if value, exists := l.store.GetValue(key); exists {
		if existing, err := parseResourceActivity(value); err == nil {
			current = *existing
		}
	}
	current.Count += delta
	current.Timestamp = time.Now()

	if current.Count <= 0 {
		l.store.DeleteValue(key)
		return nil
	}

	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal activity data: %w", err)
	}
	l.store.StoreValue(key, string(data))
	return nil
}

func parseResourceActivity(value interface{}) (*ResourceActivity, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("invalid data type: %T", value)
	}

	var activity ResourceActivity
	if err := json.Unmarshal(data, &activity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity data: %w", err)
	}
	return &activity, nil
}

func getTTLFromEnv() time.Duration {
	ttlStr := os.Getenv("SHIM_RATE_LIMITER_TTL")
	if ttlStr == "" {
		return defaultTTL
	}
	if ttlSeconds, err := strconv.Atoi(ttlStr); err == nil && ttlSeconds > 0 {
		return time.Duration(ttlSeconds) * time.Second
	}
	logger.Warnf("ignoring invalid rate limiter TTL: %s", ttlStr)
	return defaultTTL
}

func activityKeyPrefixFor(operationID string) string {
	return activityKeyPrefix + operationID + ":"
}

func activityKey(operationID, instanceID string) string {
	return activityKeyPrefixFor(operationID) + instanceID
}
