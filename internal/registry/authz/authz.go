// Package authz decides whether one mint attempt carries valid
// administrative authority. Gates are pure: the orchestrator loads the
// admin record and hands it in, so implementations never touch storage.
package authz

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"wrapregistry/internal/registry/models"
	"wrapregistry/internal/registry/payload"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
)

// Mode selects the deployment's authorization scheme.
type Mode string

const (
	// ModeCapability requires the authenticated caller to be the admin.
	ModeCapability Mode = "capability"
	// ModeSignature requires a detached admin signature over the
	// canonical mint payload.
	ModeSignature Mode = "signature"
)

// ParseMode validates a mode string from configuration.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeCapability, ModeSignature:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("unknown auth mode %q (want capability or signature)", raw)
	}
}

// Gate authorizes one mint attempt against the current admin record.
type Gate interface {
	Authorize(ctx context.Context, admin *models.AdminRecord, req *models.MintRequest) error
}

// CapabilityGate passes only when the transport-authenticated caller is
// the registry admin itself.
type CapabilityGate struct{}

func NewCapabilityGate() *CapabilityGate { return &CapabilityGate{} }

func (g *CapabilityGate) Authorize(_ context.Context, admin *models.AdminRecord, req *models.MintRequest) error {
	if req.Caller == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if req.Caller != admin.Admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry admin")
	}
	return nil
}

// SignatureGate verifies a detached Ed25519 signature over the
// canonical payload for this instance.
//
// Signatures carry no expiry and no nonce. A captured signature stays
// valid for its exact (user, period, archetype, hash) tuple until that
// (user, period) is consumed; the uniqueness invariant bounds the
// damage to the mint the admin already approved. The instance identity
// inside the payload keeps signatures from crossing deployments.
type SignatureGate struct {
	instance id.InstanceID
}

func NewSignatureGate(instance id.InstanceID) *SignatureGate {
	return &SignatureGate{instance: instance}
}

func (g *SignatureGate) Authorize(_ context.Context, admin *models.AdminRecord, req *models.MintRequest) error {
	if !admin.HasKey() {
		return dErrors.New(dErrors.CodeNotInitialized, "no admin public key registered")
	}
	if len(req.Signature) != ed25519.SignatureSize {
		return dErrors.New(dErrors.CodeInvalidSignature, "signature must be exactly 64 bytes")
	}

	msg := payload.Canonicalize(g.instance, req.User, req.Period, req.Archetype, req.ContentHash)
	if !ed25519.Verify(ed25519.PublicKey(admin.PublicKey), msg, req.Signature) {
		return dErrors.New(dErrors.CodeInvalidSignature, "signature verification failed")
	}
	return nil
}
