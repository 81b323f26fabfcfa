// Package domain holds value types shared by every layer: ledger
// account identities and registry instance identities. Both are opaque
// to this service; parsing enforces shape, never meaning.
package domain

import (
	dErrors "wrapregistry/pkg/domain-errors"
)

// AccountID identifies a ledger account (a wrap recipient, a submitter,
// or the registry admin). The ledger's own encoding is opaque here.
type AccountID string

// InstanceID identifies one deployed registry. Signed mint payloads are
// bound to it, so a signature issued for one deployment cannot be
// replayed against another.
type InstanceID string

// maxIDLen bounds identifier length well above any ledger encoding
// (Stellar strkeys are 56 characters) while still rejecting abuse.
const maxIDLen = 128

// ParseAccountID validates an account identifier from a trust boundary.
func ParseAccountID(raw string) (AccountID, error) {
	if err := validateID(raw); err != nil {
		return "", err
	}
	return AccountID(raw), nil
}

// ParseInstanceID validates a registry instance identifier.
func ParseInstanceID(raw string) (InstanceID, error) {
	if err := validateID(raw); err != nil {
		return "", err
	}
	return InstanceID(raw), nil
}

func (a AccountID) String() string  { return string(a) }
func (i InstanceID) String() string { return string(i) }

// validateID rejects empty, oversized, or oddly-shaped identifiers.
// The charset covers ledger strkeys plus the separators deployment
// names use; everything else is rejected at the boundary.
func validateID(raw string) error {
	if raw == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier cannot be empty")
	}
	if len(raw) > maxIDLen {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier exceeds maximum length")
	}
	for i := 0; i < len(raw); i++ {
		if !isIDByte(raw[i]) {
			return dErrors.New(dErrors.CodeInvalidInput, "identifier contains invalid characters")
		}
	}
	return nil
}

func isIDByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == ':':
		return true
	default:
		return false
	}
}
