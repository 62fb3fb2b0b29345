package adapter

// Adapter hosts the shim's handler in a runtime environment
type Adapter interface {
	// Start runs the adapter until the runtime stops it
	Start() error
}
