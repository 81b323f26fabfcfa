// Package store persists one registry instance: wrap records, per-user
// counters, the admin record, and the staged event outbox. Stores are
// pure I/O; the uniqueness and atomicity rules they enforce are
// structural (keys and transactions), never business logic.
package store

import (
	"context"

	"github.com/google/uuid"

	"wrapregistry/internal/events"
	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
)

// Store is the persistence boundary of the mint orchestrator.
//
// Error contract: methods return pkg/platform/sentinel facts
// (ErrConflict, ErrNotFound), wrapped with call context. Getters return
// (nil, nil) when the entity simply does not exist; absence is data
// here, not a failure.
type Store interface {
	// Exists reports whether a wrap record exists for (user, period).
	Exists(ctx context.Context, user id.AccountID, period uint64) (bool, error)

	// Get loads the wrap record for (user, period), nil when absent.
	Get(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error)

	// Put inserts a wrap record. Returns sentinel.ErrConflict when a
	// record for (user, period) already exists; it never overwrites.
	Put(ctx context.Context, record *models.WrapRecord) error

	// IncrementCount adds one to the user's wrap counter, creating it
	// at zero first, and returns the new value.
	IncrementCount(ctx context.Context, user id.AccountID) (uint64, error)

	// Count returns the user's wrap counter, zero when absent.
	Count(ctx context.Context, user id.AccountID) (uint64, error)

	// GetAdmin loads the admin record, nil before initialization.
	GetAdmin(ctx context.Context) (*models.AdminRecord, error)

	// InitAdmin creates the admin record if and only if none exists.
	// Returns sentinel.ErrConflict when one does: initialization is a
	// compare-and-set, not an upsert.
	InitAdmin(ctx context.Context, record *models.AdminRecord) error

	// SetAdmin replaces the admin record. Returns sentinel.ErrNotFound
	// when the instance was never initialized.
	SetAdmin(ctx context.Context, record *models.AdminRecord) error

	// AppendEvent stages a mint notification in the outbox. Inside an
	// atomic scope the event commits together with the mint it
	// announces.
	AppendEvent(ctx context.Context, event events.Event) error

	// ListUnpublishedEvents returns staged events in commit order, up
	// to limit.
	ListUnpublishedEvents(ctx context.Context, limit int) ([]events.Event, error)

	// MarkEventsPublished marks outbox entries delivered so the worker
	// never re-lists them.
	MarkEventsPublished(ctx context.Context, ids []uuid.UUID) error

	// RunAtomic executes fn with every store write inside it committed
	// together or not at all. Implementations carry the scope through
	// ctx; fn must use the ctx it receives for every store call.
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}
