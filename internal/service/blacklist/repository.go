package blacklist

import (
	"context"

	"github.com/ignite/blacklist-api/internal/domain"
)

// Repository defines the data access contract for the blacklist table.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Insert stores a new entry. It never deduplicates by email.
	Insert(ctx context.Context, e *domain.BlacklistEntry) error

	// FindByEmail returns the earliest entry (by created_at, then id) whose
	// email equals the argument exactly. Returns ErrNotFound if none exists.
	FindByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
