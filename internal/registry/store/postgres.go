package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"wrapregistry/internal/events"
	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
	"wrapregistry/pkg/platform/sentinel"
	pkgtx "wrapregistry/pkg/platform/tx"
)

// Schema is applied at startup and by integration test setup. Multiple
// instances share these tables; every key is scoped by instance_id.
const Schema = `
CREATE TABLE IF NOT EXISTS wrap_records (
	instance_id  TEXT        NOT NULL,
	user_id      TEXT        NOT NULL,
	period       BIGINT      NOT NULL,
	archetype    TEXT        NOT NULL,
	content_hash BYTEA       NOT NULL,
	minted_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (instance_id, user_id, period)
);

CREATE TABLE IF NOT EXISTS wrap_counters (
	instance_id TEXT   NOT NULL,
	user_id     TEXT   NOT NULL,
	wrap_count  BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (instance_id, user_id)
);

CREATE TABLE IF NOT EXISTS registry_admins (
	instance_id TEXT        PRIMARY KEY,
	admin_id    TEXT        NOT NULL,
	public_key  BYTEA,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS mint_events (
	seq          BIGSERIAL   PRIMARY KEY,
	id           UUID        NOT NULL UNIQUE,
	instance_id  TEXT        NOT NULL,
	user_id      TEXT        NOT NULL,
	period       BIGINT      NOT NULL,
	archetype    TEXT        NOT NULL,
	minted_at    TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS mint_events_unpublished
	ON mint_events (instance_id, seq)
	WHERE published_at IS NULL;
`

// EnsureSchema creates the registry tables if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

const defaultAtomicTimeout = 5 * time.Second

// PostgresStore persists one registry instance in PostgreSQL. The
// primary key on (instance_id, user_id, period) is the structural
// uniqueness guarantee; concurrent duplicate mints resolve to exactly
// one inserted row no matter how requests interleave.
type PostgresStore struct {
	db       *sql.DB
	instance id.InstanceID
	timeout  time.Duration
}

func NewPostgres(db *sql.DB, instance id.InstanceID) *PostgresStore {
	return &PostgresStore{db: db, instance: instance, timeout: defaultAtomicTimeout}
}

func (s *PostgresStore) Exists(ctx context.Context, user id.AccountID, period uint64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM wrap_records
			WHERE instance_id = $1 AND user_id = $2 AND period = $3
		)
	`
	var exists bool
	err := pkgtx.Queryable(ctx, s.db).QueryRowContext(ctx, query, s.instance, user, int64(period)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wrap exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Get(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error) {
	query := `
		SELECT user_id, period, archetype, content_hash, minted_at
		FROM wrap_records
		WHERE instance_id = $1 AND user_id = $2 AND period = $3
	`
	record, err := scanWrapRecord(pkgtx.Queryable(ctx, s.db).QueryRowContext(ctx, query, s.instance, user, int64(period)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get wrap record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Put(ctx context.Context, record *models.WrapRecord) error {
	if record == nil {
		return fmt.Errorf("wrap record is required")
	}
	query := `
		INSERT INTO wrap_records (instance_id, user_id, period, archetype, content_hash, minted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (instance_id, user_id, period) DO NOTHING
	`
	result, err := pkgtx.Queryable(ctx, s.db).ExecContext(ctx, query,
		s.instance,
		record.User,
		int64(record.Period),
		record.Archetype,
		record.ContentHash[:],
		record.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("put wrap record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put wrap record rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) IncrementCount(ctx context.Context, user id.AccountID) (uint64, error) {
	query := `
		INSERT INTO wrap_counters (instance_id, user_id, wrap_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (instance_id, user_id) DO UPDATE SET
			wrap_count = wrap_counters.wrap_count + 1
		RETURNING wrap_count
	`
	var count int64
	err := pkgtx.Queryable(ctx, s.db).QueryRowContext(ctx, query, s.instance, user).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment wrap count: %w", err)
	}
	return uint64(count), nil
}

func (s *PostgresStore) Count(ctx context.Context, user id.AccountID) (uint64, error) {
	query := `
		SELECT COALESCE(
			(SELECT wrap_count FROM wrap_counters WHERE instance_id = $1 AND user_id = $2),
			0
		)
	`
	var count int64
	err := pkgtx.Queryable(ctx, s.db).QueryRowContext(ctx, query, s.instance, user).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get wrap count: %w", err)
	}
	return uint64(count), nil
}

func (s *PostgresStore) GetAdmin(ctx context.Context) (*models.AdminRecord, error) {
	query := `
		SELECT admin_id, public_key, updated_at
		FROM registry_admins
		WHERE instance_id = $1
	`
	var record models.AdminRecord
	var key []byte
	err := pkgtx.Queryable(ctx, s.db).QueryRowContext(ctx, query, s.instance).
		Scan(&record.Admin, &key, &record.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin record: %w", err)
	}
	if len(key) > 0 {
		record.PublicKey = key
	}
	return &record, nil
}

func (s *PostgresStore) InitAdmin(ctx context.Context, record *models.AdminRecord) error {
	if record == nil {
		return fmt.Errorf("admin record is required")
	}
	query := `
		INSERT INTO registry_admins (instance_id, admin_id, public_key, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instance_id) DO NOTHING
	`
	result, err := pkgtx.Queryable(ctx, s.db).ExecContext(ctx, query,
		s.instance, record.Admin, record.PublicKey, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("init admin record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("init admin rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) SetAdmin(ctx context.Context, record *models.AdminRecord) error {
	if record == nil {
		return fmt.Errorf("admin record is required")
	}
	query := `
		UPDATE registry_admins
		SET admin_id = $2, public_key = $3, updated_at = $4
		WHERE instance_id = $1
	`
	result, err := pkgtx.Queryable(ctx, s.db).ExecContext(ctx, query,
		s.instance, record.Admin, record.PublicKey, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set admin record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set admin rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event events.Event) error {
	query := `
		INSERT INTO mint_events (id, instance_id, user_id, period, archetype, minted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := pkgtx.Queryable(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		s.instance,
		event.User,
		int64(event.Period),
		event.Archetype,
		event.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("append mint event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnpublishedEvents(ctx context.Context, limit int) ([]events.Event, error) {
	query := `
		SELECT id, user_id, period, archetype, minted_at
		FROM mint_events
		WHERE instance_id = $1 AND published_at IS NULL
		ORDER BY seq
		LIMIT $2
	`
	rows, err := pkgtx.Queryable(ctx, s.db).QueryContext(ctx, query, s.instance, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var event events.Event
		var period int64
		if err := rows.Scan(&event.ID, &event.User, &period, &event.Archetype, &event.MintedAt); err != nil {
			return nil, fmt.Errorf("scan mint event: %w", err)
		}
		event.Period = uint64(period)
		event.Instance = s.instance
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkEventsPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, eventID := range ids {
		raw[i] = eventID.String()
	}
	query := `
		UPDATE mint_events
		SET published_at = NOW()
		WHERE instance_id = $1 AND id = ANY($2::uuid[])
	`
	if _, err := pkgtx.Queryable(ctx, s.db).ExecContext(ctx, query, s.instance, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark events published: %w", err)
	}
	return nil
}

// RunAtomic opens one transaction, carries it through ctx, and commits
// only when fn succeeds. Store calls inside fn resolve the transaction
// via pkg/platform/tx.
func (s *PostgresStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, joined := pkgtx.From(ctx); joined {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "atomic scope aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultAtomicTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin atomic scope: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(pkgtx.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit atomic scope: %w", err)
	}
	return nil
}

type wrapRecordRow interface {
	Scan(dest ...any) error
}

func scanWrapRecord(row wrapRecordRow) (*models.WrapRecord, error) {
	var record models.WrapRecord
	var period int64
	var hash []byte
	if err := row.Scan(&record.User, &period, &record.Archetype, &hash, &record.MintedAt); err != nil {
		return nil, err
	}
	record.Period = uint64(period)
	copy(record.ContentHash[:], hash)
	return &record, nil
}
