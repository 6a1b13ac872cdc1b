// Package config holds the user settings of tabsweep. Settings are grouped in
// sections registered with a Manager and persisted through a Store.
package config

import (
	"sync"
)

var (
	// globalManager is the process-wide configuration manager
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global manager with every tabsweep section and
// loads configPath into it. An empty path means ~/.tabsweep/config.json.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// NewDefaultManager creates a manager with the engine and permissions
// sections registered.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)
	if err := manager.RegisterSection(NewEngineSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewPermissionsSection()); err != nil {
		return nil, err
	}
	return manager, nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetEngine returns the engine section from global config.
// Returns nil if config is not initialized.
func GetEngine() *EngineSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDEngine)
	if !ok {
		return nil
	}
	engine, _ := section.(*EngineSection)
	return engine
}

// GetPermissions returns the permissions section from global config.
// Returns nil if config is not initialized.
func GetPermissions() *PermissionsSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDPermissions)
	if !ok {
		return nil
	}
	permissions, _ := section.(*PermissionsSection)
	return permissions
}
