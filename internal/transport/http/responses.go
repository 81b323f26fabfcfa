package httptransport

import (
	"time"

	"wrapregistry/internal/registry/models"
)

// WrapResponse is the HTTP response DTO for one wrap record.
type WrapResponse struct {
	User        string    `json:"user"`
	Period      uint64    `json:"period"`
	Archetype   string    `json:"archetype"`
	ContentHash string    `json:"content_hash"`
	MintedAt    time.Time `json:"minted_at"`
}

func newWrapResponse(record *models.WrapRecord) WrapResponse {
	return WrapResponse{
		User:        record.User.String(),
		Period:      record.Period,
		Archetype:   record.Archetype,
		ContentHash: record.HashHex(),
		MintedAt:    record.MintedAt,
	}
}

// AdminResponse reports the registry authority. Admin is null until the
// instance is initialized. The public key itself is never echoed; its
// presence is enough for callers to know the deployment's mode.
type AdminResponse struct {
	Admin         *string    `json:"admin"`
	SignatureAuth *bool      `json:"signature_auth,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func newAdminResponse(record *models.AdminRecord) AdminResponse {
	if record == nil {
		return AdminResponse{}
	}
	admin := record.Admin.String()
	hasKey := record.HasKey()
	updated := record.UpdatedAt
	return AdminResponse{
		Admin:         &admin,
		SignatureAuth: &hasKey,
		UpdatedAt:     &updated,
	}
}

// BalanceResponse is the token-facade balance view.
type BalanceResponse struct {
	User    string `json:"user"`
	Balance uint64 `json:"balance"`
}

// CountResponse reports the per-user mint counter.
type CountResponse struct {
	User  string `json:"user"`
	Count uint64 `json:"count"`
}
