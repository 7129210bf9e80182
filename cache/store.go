// cache/store.go

// Package cache persists the instance inventory built by discovery.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rahulwagh/policymig/fetcher"
	"github.com/rahulwagh/policymig/policy"
)

// Store is the instance inventory. It is the single source of truth for
// tag resolution; callers own its lifecycle and must Close it.
type Store interface {
	// SaveInstances inserts or replaces instances keyed by target and id.
	SaveInstances(instances []fetcher.Instance) error

	// FetchInstances returns every stored instance of target, or of every
	// target when target is empty.
	FetchInstances(target policy.Target) ([]fetcher.Instance, error)

	// Clear removes every stored instance.
	Clear() error

	Close() error
}

// Supported store drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Open returns the store for driver, creating its parent directory.
func Open(driver, path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverJSON:
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want %s or %s)", driver, DriverSQLite, DriverJSON)
	}
}

// DefaultDir is where the inventory and config live unless overridden.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".policymig"), nil
}
