package ports

import (
	"context"

	"github.com/aretw0/loadkit/pkg/domain"
)

// JournalStore persists the records of finished image loads.
type JournalStore interface {
	// Append stores a record. Records are keyed by LoadRecord.ID.
	Append(ctx context.Context, record domain.LoadRecord) error

	// Get retrieves a record by ID.
	// Returns domain.ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, id string) (domain.LoadRecord, error)

	// List returns records, most recent first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]domain.LoadRecord, error)
}
