// Package service implements the registry state machine: one-shot
// initialization, admin rotation, authorized exactly-once minting, and
// the read-only token facade. All mutations run inside a store atomic
// scope so a failed step never leaves partial state behind.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"wrapregistry/internal/events"
	"wrapregistry/internal/registry/authz"
	"wrapregistry/internal/registry/metrics"
	"wrapregistry/internal/registry/models"
	"wrapregistry/internal/registry/store"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
	"wrapregistry/pkg/platform/sentinel"
)

var tracer = otel.Tracer("wrapregistry/internal/registry/service")

// Clock supplies mint timestamps. Injected so tests pin time exactly.
type Clock func() time.Time

// Service orchestrates mints for one registry instance. The instance is
// Uninitialized until the admin record exists and Ready forever after;
// no other states exist.
type Service struct {
	store    store.Store
	gate     authz.Gate
	instance id.InstanceID
	clock    Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics attaches registry metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(st store.Store, gate authz.Gate, instance id.InstanceID, opts ...Option) *Service {
	s := &Service{
		store:    st,
		gate:     gate,
		instance: instance,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Initialize creates the admin record, moving the instance from
// Uninitialized to Ready. First come wins: the operation is open to any
// caller but succeeds at most once per instance, ever.
func (s *Service) Initialize(ctx context.Context, admin id.AccountID, publicKey []byte) error {
	ctx, span := tracer.Start(ctx, "registry.initialize")
	defer span.End()

	record := &models.AdminRecord{
		Admin:     admin,
		PublicKey: publicKey,
		UpdatedAt: s.clock().UTC(),
	}
	if err := record.Validate(); err != nil {
		return err
	}

	if err := s.store.InitAdmin(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "registry is already initialized")
		}
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "store admin record")
	}

	s.metrics.IncrementAdminChange("initialize")
	s.logger.Info("registry initialized",
		"instance", s.instance,
		"admin", record.Admin,
		"signature_auth", record.HasKey(),
	)
	return nil
}

// UpdateAdmin replaces the admin identity and key together. Only the
// current admin may rotate, always by capability, regardless of which
// gate the deployment uses for minting. Key presence is fixed at
// Initialize: a signature deployment must supply a replacement key and
// a capability deployment must not introduce one.
func (s *Service) UpdateAdmin(ctx context.Context, caller, newAdmin id.AccountID, newKey []byte) error {
	ctx, span := tracer.Start(ctx, "registry.update_admin")
	defer span.End()

	record := &models.AdminRecord{
		Admin:     newAdmin,
		PublicKey: newKey,
		UpdatedAt: s.clock().UTC(),
	}
	if err := record.Validate(); err != nil {
		return err
	}

	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		current, err := s.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if caller == "" {
			return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
		}
		if caller != current.Admin {
			return dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry admin")
		}
		if current.HasKey() != record.HasKey() {
			return dErrors.New(dErrors.CodeInvalidInput, "admin key presence cannot change after initialization")
		}
		if err := s.store.SetAdmin(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "replace admin record")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.metrics.IncrementAdminChange("rotate")
	s.logger.Info("registry admin rotated", "instance", s.instance, "admin", record.Admin)
	return nil
}

// Mint issues the wrap for (user, period). Authorization, the
// uniqueness check, the record write, the counter increment, and the
// staged notification all commit together or not at all.
func (s *Service) Mint(ctx context.Context, req *models.MintRequest) (*models.WrapRecord, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "registry.mint")
	defer span.End()

	record, err := s.mint(ctx, req)
	s.metrics.ObserveMintLatency(time.Since(start))
	s.metrics.IncrementMint(mintOutcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("wrap.period", int64(record.Period)),
		attribute.String("wrap.archetype", record.Archetype),
	)
	s.logger.Info("wrap minted",
		"instance", s.instance,
		"user", record.User,
		"period", record.Period,
		"archetype", record.Archetype,
		"content_hash", record.HashHex(),
	)
	return record, nil
}

func (s *Service) mint(ctx context.Context, req *models.MintRequest) (*models.WrapRecord, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "mint request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var record *models.WrapRecord
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		admin, err := s.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, admin, req); err != nil {
			return err
		}

		exists, err := s.store.Exists(ctx, req.User, req.Period)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check wrap uniqueness")
		}
		if exists {
			return dErrors.New(dErrors.CodeWrapAlreadyExists, "a wrap is already minted for this user and period")
		}

		record = &models.WrapRecord{
			User:        req.User,
			Period:      req.Period,
			Archetype:   req.Archetype,
			ContentHash: req.ContentHash,
			MintedAt:    s.clock().UTC(),
		}
		if err := s.store.Put(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeWrapAlreadyExists, "a wrap is already minted for this user and period")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "store wrap record")
		}
		if _, err := s.store.IncrementCount(ctx, req.User); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "increment wrap counter")
		}

		event := events.Event{
			ID:        uuid.New(),
			Instance:  s.instance,
			User:      req.User,
			Period:    req.Period,
			Archetype: req.Archetype,
			MintedAt:  record.MintedAt,
		}
		if err := s.store.AppendEvent(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "stage mint event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetWrap loads one wrap record.
func (s *Service) GetWrap(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error) {
	record, err := s.store.Get(ctx, user, period)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load wrap record")
	}
	if record == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no wrap minted for this user and period")
	}
	return record, nil
}

// HasWrap reports whether a wrap exists for (user, period).
func (s *Service) HasWrap(ctx context.Context, user id.AccountID, period uint64) (bool, error) {
	exists, err := s.store.Exists(ctx, user, period)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check wrap record")
	}
	return exists, nil
}

// BalanceOf is the token-facade view of the per-user counter: wraps are
// indivisible, so the balance equals the number of wraps ever minted
// for the user.
func (s *Service) BalanceOf(ctx context.Context, user id.AccountID) (uint64, error) {
	return s.WrapCount(ctx, user)
}

// WrapCount returns the user's mint counter, zero for unknown users.
func (s *Service) WrapCount(ctx context.Context, user id.AccountID) (uint64, error) {
	count, err := s.store.Count(ctx, user)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "load wrap counter")
	}
	return count, nil
}

// Admin returns the current admin record.
func (s *Service) Admin(ctx context.Context) (*models.AdminRecord, error) {
	admin, err := s.store.GetAdmin(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load admin record")
	}
	return admin, nil
}

// Metadata returns the fixed token constants.
func (s *Service) Metadata() models.TokenMetadata {
	return models.Metadata()
}

var errTransferNotAllowed = dErrors.New(dErrors.CodeTransferNotAllowed, "wrap records are non-transferable")

// Transfer always fails: wraps are bound to the user they were minted
// for.
func (s *Service) Transfer(ctx context.Context, from, to id.AccountID, period uint64) error {
	return errTransferNotAllowed
}

// TransferFrom always fails; no allowance ever exists to spend.
func (s *Service) TransferFrom(ctx context.Context, spender, from, to id.AccountID, period uint64) error {
	return errTransferNotAllowed
}

// Approve always fails: allowances are meaningless for soulbound
// records.
func (s *Service) Approve(ctx context.Context, owner, spender id.AccountID, period uint64) error {
	return errTransferNotAllowed
}

// Burn always fails: minted wraps are permanent.
func (s *Service) Burn(ctx context.Context, from id.AccountID, period uint64) error {
	return errTransferNotAllowed
}

func (s *Service) requireAdmin(ctx context.Context) (*models.AdminRecord, error) {
	admin, err := s.store.GetAdmin(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load admin record")
	}
	if admin == nil {
		return nil, dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
	}
	return admin, nil
}

func mintOutcome(err error) string {
	switch {
	case err == nil:
		return "minted"
	case dErrors.HasCode(err, dErrors.CodeWrapAlreadyExists):
		return "duplicate"
	case dErrors.HasCode(err, dErrors.CodeUnauthorized),
		dErrors.HasCode(err, dErrors.CodeInvalidSignature):
		return "unauthorized"
	case dErrors.HasCode(err, dErrors.CodeBadRequest),
		dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
