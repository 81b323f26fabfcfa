package httptransport

import (
	"encoding/base64"

	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
)

// InitializeRequest creates the admin record. PublicKey is base64 and
// optional; supplying it fixes the instance to signature authorization.
type InitializeRequest struct {
	Admin     string `json:"admin"`
	PublicKey string `json:"public_key,omitempty"`
}

func (r *InitializeRequest) Parse() (id.AccountID, []byte, error) {
	admin, err := id.ParseAccountID(r.Admin)
	if err != nil {
		return "", nil, err
	}
	key, err := decodeKey(r.PublicKey)
	if err != nil {
		return "", nil, err
	}
	return admin, key, nil
}

// UpdateAdminRequest rotates the admin identity and key together. The
// caller comes from the bearer token, never from the body.
type UpdateAdminRequest struct {
	Admin     string `json:"admin"`
	PublicKey string `json:"public_key,omitempty"`
}

func (r *UpdateAdminRequest) Parse() (id.AccountID, []byte, error) {
	admin, err := id.ParseAccountID(r.Admin)
	if err != nil {
		return "", nil, err
	}
	key, err := decodeKey(r.PublicKey)
	if err != nil {
		return "", nil, err
	}
	return admin, key, nil
}

// MintRequest submits one wrap. ContentHash is 64 hex characters;
// Signature is base64 and only meaningful in signature deployments.
type MintRequest struct {
	User        string `json:"user"`
	Period      uint64 `json:"period"`
	Archetype   string `json:"archetype"`
	ContentHash string `json:"content_hash"`
	Signature   string `json:"signature,omitempty"`
}

// Parse converts the wire shape into the domain request. The caller
// identity is attached by the handler from the request context.
func (r *MintRequest) Parse() (*models.MintRequest, error) {
	user, err := id.ParseAccountID(r.User)
	if err != nil {
		return nil, err
	}
	hash, err := models.ParseContentHash(r.ContentHash)
	if err != nil {
		return nil, err
	}

	var sig []byte
	if r.Signature != "" {
		sig, err = base64.StdEncoding.DecodeString(r.Signature)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "signature is not valid base64")
		}
	}

	req := &models.MintRequest{
		User:        user,
		Period:      r.Period,
		Archetype:   r.Archetype,
		ContentHash: hash,
		Signature:   sig,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not valid base64")
	}
	return key, nil
}
