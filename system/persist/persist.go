package persist

// Registry provides an interface for different configurations to save to the settings file and reload
type Registry interface {
	// Name should return the name of the configuration
	Name() string
	// Value should return the value to be persisted. An empty value is not saved
	Value() string
	// Load should load the value returned by Value() and populate the configuration
	Load(string) error
	// Apply should re-apply configurations
	Apply() error
	// Close should handle graceful shutdown
	Close() error
}

// ConfigRegistry defines an interface to save/load/apply configs in each Registry
type ConfigRegistry interface {
	// Register should register the given Registry to be load/save/apply
	Register(registry Registry)
	// Load should restore the configurations from the backing storage
	Load() error
	// Save should save the configurations to the backing storage
	Save() error
	// Apply should instruct each Registry to apply the configurations
	Apply() error
	// Close should instruct each Registry to close/clean up
	Close()
}
