package snapshot

import (
	"time"

	"github.com/arlide/mural/internal/models"
)

// Provider defines the interface for durable snapshot storage. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Provider interface {
	Save(id string, nodes []models.Note, edges []models.Edge, savedAt time.Time) error
	Load(id string) (*Record, error)
	Delete(id string) error
	Keys() ([]string, error)
	Close() error
}

// Verify *DB satisfies Provider at compile time.
var _ Provider = (*DB)(nil)
