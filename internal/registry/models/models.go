// Package models defines the registry's domain objects: wrap records,
// the admin record, and the mint request that crosses the trust
// boundary.
package models

import (
	"crypto/ed25519"
	"encoding/hex"
	"math"
	"time"

	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
)

// Token metadata is fixed at deployment and identical for every
// instance. Decimals is zero: wraps are indivisible records, not
// balances.
const (
	TokenName     = "Stellar Wrap Registry"
	TokenSymbol   = "WRAP"
	TokenDecimals = uint32(0)
)

// TokenMetadata is the fixed token facade of the registry.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
}

// Metadata returns the deployment-wide token constants.
func Metadata() TokenMetadata {
	return TokenMetadata{Name: TokenName, Symbol: TokenSymbol, Decimals: TokenDecimals}
}

// MaxArchetypeLen bounds archetype labels to the short-symbol size the
// ledger's event topics allow.
const MaxArchetypeLen = 32

// ContentHashSize is the exact byte length of a content hash. The hash
// is opaque: the registry stores and echoes it, never recomputes it.
const ContentHashSize = 32

// SignatureSize is the length of a detached Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// WrapRecord is one issued wrap.
//
// Invariants:
//   - At most one record exists per (user, period) per instance, forever.
//   - Records are immutable: no operation updates or deletes them.
//   - MintedAt comes from the service clock at commit time.
type WrapRecord struct {
	User        id.AccountID `json:"user"`
	Period      uint64       `json:"period"`
	Archetype   string       `json:"archetype"`
	ContentHash [32]byte     `json:"-"`
	MintedAt    time.Time    `json:"minted_at"`
}

// HashHex renders the content hash for wire and log use.
func (r *WrapRecord) HashHex() string {
	return hex.EncodeToString(r.ContentHash[:])
}

// AdminRecord is the single administrative authority of one instance.
// PublicKey is nil in capability deployments; when present it is a raw
// 32-byte Ed25519 key and rotates together with the identity.
type AdminRecord struct {
	Admin     id.AccountID
	PublicKey []byte
	UpdatedAt time.Time
}

// Validate checks the key-shape rule. An admin without a key is a
// capability deployment; an admin with one is a signature deployment.
func (a *AdminRecord) Validate() error {
	if a.Admin == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "admin identity is required")
	}
	if len(a.PublicKey) != 0 && len(a.PublicKey) != ed25519.PublicKeySize {
		return dErrors.New(dErrors.CodeInvalidInput, "admin public key must be exactly 32 bytes")
	}
	return nil
}

// HasKey reports whether this instance can verify detached signatures.
func (a *AdminRecord) HasKey() bool { return len(a.PublicKey) == ed25519.PublicKeySize }

// MintRequest carries one mint attempt. Caller is the authenticated
// account when the transport saw credentials, empty otherwise.
// Signature is empty in capability deployments.
type MintRequest struct {
	User        id.AccountID
	Period      uint64
	Archetype   string
	ContentHash [32]byte
	Caller      id.AccountID
	Signature   []byte
}

// Validate enforces request shape before any storage or crypto work.
func (m *MintRequest) Validate() error {
	if m.User == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user is required")
	}
	if m.Period == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "period must be a positive integer")
	}
	if m.Period > math.MaxInt64 {
		return dErrors.New(dErrors.CodeInvalidInput, "period exceeds the supported range")
	}
	if err := ValidateArchetype(m.Archetype); err != nil {
		return err
	}
	if len(m.Signature) != 0 && len(m.Signature) != SignatureSize {
		return dErrors.New(dErrors.CodeInvalidInput, "signature must be exactly 64 bytes")
	}
	return nil
}

// ValidateArchetype enforces the short-symbol charset: 1 to 32
// characters of [A-Za-z0-9_].
func ValidateArchetype(archetype string) error {
	if archetype == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "archetype is required")
	}
	if len(archetype) > MaxArchetypeLen {
		return dErrors.New(dErrors.CodeInvalidInput, "archetype must be 32 characters or less")
	}
	for i := 0; i < len(archetype); i++ {
		c := archetype[i]
		ok := c >= 'a' && c <= 'z' ||
			c >= 'A' && c <= 'Z' ||
			c >= '0' && c <= '9' ||
			c == '_'
		if !ok {
			return dErrors.New(dErrors.CodeInvalidInput, "archetype may contain only letters, digits, and underscores")
		}
	}
	return nil
}

// ParseContentHash decodes a 64-character hex string into a fixed-size
// hash. The registry never interprets the digest.
func ParseContentHash(raw string) ([32]byte, error) {
	var out [32]byte
	if len(raw) != ContentHashSize*2 {
		return out, dErrors.New(dErrors.CodeInvalidInput, "content hash must be 64 hex characters")
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return out, dErrors.New(dErrors.CodeInvalidInput, "content hash is not valid hex")
	}
	copy(out[:], decoded)
	return out, nil
}
