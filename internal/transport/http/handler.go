// Package httptransport is the thin HTTP layer over the registry
// service. Handlers decode, delegate, and render; every domain decision
// lives below, and every error reaches the wire through the shared
// envelope writer.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wrapregistry/internal/platform/metrics"
	"wrapregistry/internal/platform/middleware"
	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
)

// Registry defines the service surface the transport needs.
type Registry interface {
	Initialize(ctx context.Context, admin id.AccountID, publicKey []byte) error
	UpdateAdmin(ctx context.Context, caller, newAdmin id.AccountID, newKey []byte) error
	Mint(ctx context.Context, req *models.MintRequest) (*models.WrapRecord, error)
	GetWrap(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error)
	BalanceOf(ctx context.Context, user id.AccountID) (uint64, error)
	WrapCount(ctx context.Context, user id.AccountID) (uint64, error)
	Admin(ctx context.Context) (*models.AdminRecord, error)
	Metadata() models.TokenMetadata
	Transfer(ctx context.Context, from, to id.AccountID, period uint64) error
	TransferFrom(ctx context.Context, spender, from, to id.AccountID, period uint64) error
	Approve(ctx context.Context, owner, spender id.AccountID, period uint64) error
	Burn(ctx context.Context, from id.AccountID, period uint64) error
}

// HealthCheck is one named dependency probe for the health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler handles all registry endpoints.
type Handler struct {
	logger       *slog.Logger
	registry     Registry
	metrics      *metrics.HTTP
	jwtValidator middleware.JWTValidator
	health       []HealthCheck
}

// New creates a new registry Handler.
func New(
	registry Registry,
	logger *slog.Logger,
	httpMetrics *metrics.HTTP,
	jwtValidator middleware.JWTValidator,
	health ...HealthCheck,
) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      httpMetrics,
		jwtValidator: jwtValidator,
		health:       health,
	}
}

// NewRouter wires all public endpoints behind the shared middleware
// chain. Bearer tokens are optional everywhere except admin rotation:
// signature-mode submitters legitimately arrive anonymous.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Latency(h.metrics))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.OptionalAuth(h.jwtValidator, h.logger))

		v1.Post("/registry/initialize", h.handleInitialize)
		v1.Get("/registry/admin", h.handleGetAdmin)
		v1.With(middleware.RequireAuth(h.jwtValidator, h.logger)).
			Put("/registry/admin", h.handleUpdateAdmin)

		v1.Post("/wraps", h.handleMint)
		v1.Get("/wraps/{user}/{period}", h.handleGetWrap)
		v1.Get("/users/{user}/balance", h.handleBalance)
		v1.Get("/users/{user}/wraps/count", h.handleWrapCount)

		v1.Get("/token", h.handleTokenMetadata)
		v1.Post("/token/transfer", h.handleTransfer)
		v1.Post("/token/transfer-from", h.handleTransferFrom)
		v1.Post("/token/approve", h.handleApprove)
		v1.Post("/token/burn", h.handleBurn)
	})

	return r
}
