package state

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
)

// NewLaunchStore creates a LaunchStore for the configured backend.
// Supported backends: "sqlite" (default) and "json".
func NewLaunchStore(backend, path string) (core.LaunchStore, error) {
	switch backend {
	case "", "sqlite":
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteLaunchStore(path)
	case "json":
		if !strings.HasSuffix(path, ".json") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		}
		return NewJSONLaunchStore(path), nil
	default:
		return nil, fmt.Errorf("unknown state backend: %s", backend)
	}
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// CloseLaunchStore safely closes a LaunchStore if it implements Closeable.
func CloseLaunchStore(s core.LaunchStore) error {
	if closeable, ok := s.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
