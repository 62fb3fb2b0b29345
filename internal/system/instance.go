package system

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var (
	instanceID   string
	instanceOnce sync.Once
)

// InstanceID identifies this process for the lifetime of the process
func InstanceID() string {
	instanceOnce.Do(func() {
		instanceID = GenerateInstanceID()
	})
	return instanceID
}

// GenerateInstanceID generates a unique instance ID for this server instance
func GenerateInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	pid := os.Getpid()
	timestamp := time.Now().UnixNano()
	return fmt.Sprintf("%s-%d-%d", hostname, pid, timestamp)
}
