package backend

import (
	"context"

	"walletflow/internal/ports"
)

// Backend is the persistence collaborator. Every backend can also hold the
// last-known-good rate snapshot.
type Backend interface {
	ports.Persistence
	ports.SnapshotStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired collaborators and a cleanup function
// releasing all of them.
type BackendResult struct {
	Backend Backend

	// Snapshots is Redis when configured, otherwise Backend itself.
	Snapshots ports.SnapshotStore

	// Analytics is nil when no broker is configured; the engine then logs
	// events.
	Analytics ports.Analytics

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Optional collaborators
	RedisURL     string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
