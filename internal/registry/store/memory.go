package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"wrapregistry/internal/events"
	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
	"wrapregistry/pkg/platform/sentinel"
)

type recordKey struct {
	user   id.AccountID
	period uint64
}

type outboxEntry struct {
	event     events.Event
	published bool
}

// MemoryStore keeps one instance's registry state in process memory.
// It backs unit tests and single-node development; production uses
// PostgresStore.
//
// RunAtomic holds the write lock for the whole scope and restores a
// snapshot on failure, which gives the same all-or-nothing visibility
// a database transaction does.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[recordKey]models.WrapRecord
	counters map[id.AccountID]uint64
	admin    *models.AdminRecord
	outbox   []outboxEntry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		records:  make(map[recordKey]models.WrapRecord),
		counters: make(map[id.AccountID]uint64),
	}
}

// atomicKey marks a context as running inside RunAtomic, where the
// store lock is already held.
type atomicKey struct{}

func (s *MemoryStore) enter(ctx context.Context) func() {
	if ctx.Value(atomicKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) enterRead(ctx context.Context) func() {
	if ctx.Value(atomicKey{}) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) Exists(ctx context.Context, user id.AccountID, period uint64) (bool, error) {
	defer s.enterRead(ctx)()
	_, ok := s.records[recordKey{user: user, period: period}]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error) {
	defer s.enterRead(ctx)()
	record, ok := s.records[recordKey{user: user, period: period}]
	if !ok {
		return nil, nil
	}
	out := record
	return &out, nil
}

func (s *MemoryStore) Put(ctx context.Context, record *models.WrapRecord) error {
	if record == nil {
		return fmt.Errorf("wrap record is required")
	}
	defer s.enter(ctx)()

	key := recordKey{user: record.User, period: record.Period}
	if _, ok := s.records[key]; ok {
		return sentinel.ErrConflict
	}
	s.records[key] = *record
	return nil
}

func (s *MemoryStore) IncrementCount(ctx context.Context, user id.AccountID) (uint64, error) {
	defer s.enter(ctx)()
	s.counters[user]++
	return s.counters[user], nil
}

func (s *MemoryStore) Count(ctx context.Context, user id.AccountID) (uint64, error) {
	defer s.enterRead(ctx)()
	return s.counters[user], nil
}

func (s *MemoryStore) GetAdmin(ctx context.Context) (*models.AdminRecord, error) {
	defer s.enterRead(ctx)()
	if s.admin == nil {
		return nil, nil
	}
	out := copyAdmin(s.admin)
	return out, nil
}

func (s *MemoryStore) InitAdmin(ctx context.Context, record *models.AdminRecord) error {
	if record == nil {
		return fmt.Errorf("admin record is required")
	}
	defer s.enter(ctx)()

	if s.admin != nil {
		return sentinel.ErrConflict
	}
	s.admin = copyAdmin(record)
	return nil
}

func (s *MemoryStore) SetAdmin(ctx context.Context, record *models.AdminRecord) error {
	if record == nil {
		return fmt.Errorf("admin record is required")
	}
	defer s.enter(ctx)()

	if s.admin == nil {
		return sentinel.ErrNotFound
	}
	s.admin = copyAdmin(record)
	return nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, event events.Event) error {
	defer s.enter(ctx)()
	s.outbox = append(s.outbox, outboxEntry{event: event})
	return nil
}

func (s *MemoryStore) ListUnpublishedEvents(ctx context.Context, limit int) ([]events.Event, error) {
	defer s.enterRead(ctx)()

	var out []events.Event
	for _, entry := range s.outbox {
		if entry.published {
			continue
		}
		out = append(out, entry.event)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkEventsPublished(ctx context.Context, ids []uuid.UUID) error {
	defer s.enter(ctx)()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, eventID := range ids {
		wanted[eventID] = true
	}
	for i := range s.outbox {
		if wanted[s.outbox[i].event.ID] {
			s.outbox[i].published = true
		}
	}
	return nil
}

// RunAtomic serializes the scope under the write lock and rolls the
// whole store back to its entry snapshot when fn fails. Nested scopes
// join the outer one.
func (s *MemoryStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(atomicKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	if err := fn(context.WithValue(ctx, atomicKey{}, struct{}{})); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	records  map[recordKey]models.WrapRecord
	counters map[id.AccountID]uint64
	admin    *models.AdminRecord
	outbox   []outboxEntry
}

func (s *MemoryStore) snapshotLocked() memorySnapshot {
	snap := memorySnapshot{
		records:  make(map[recordKey]models.WrapRecord, len(s.records)),
		counters: make(map[id.AccountID]uint64, len(s.counters)),
		outbox:   make([]outboxEntry, len(s.outbox)),
	}
	for k, v := range s.records {
		snap.records[k] = v
	}
	for k, v := range s.counters {
		snap.counters[k] = v
	}
	copy(snap.outbox, s.outbox)
	snap.admin = copyAdmin(s.admin)
	return snap
}

func (s *MemoryStore) restoreLocked(snap memorySnapshot) {
	s.records = snap.records
	s.counters = snap.counters
	s.outbox = snap.outbox
	s.admin = snap.admin
}

func copyAdmin(record *models.AdminRecord) *models.AdminRecord {
	if record == nil {
		return nil
	}
	out := *record
	if record.PublicKey != nil {
		out.PublicKey = make([]byte, len(record.PublicKey))
		copy(out.PublicKey, record.PublicKey)
	}
	return &out
}
