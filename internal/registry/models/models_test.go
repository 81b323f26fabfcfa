package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "wrapregistry/pkg/domain-errors"
)

func TestMintRequestValidate(t *testing.T) {
	valid := func() MintRequest {
		hash, err := ParseContentHash(strings.Repeat("ab", 32))
		require.NoError(t, err)
		return MintRequest{
			User:        "GUSER",
			Period:      2024,
			Archetype:   "explorer",
			ContentHash: hash,
		}
	}

	t.Run("accepts well-formed request", func(t *testing.T) {
		req := valid()
		require.NoError(t, req.Validate())
	})

	t.Run("rejects missing user", func(t *testing.T) {
		req := valid()
		req.User = ""
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero period", func(t *testing.T) {
		req := valid()
		req.Period = 0
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects short signature", func(t *testing.T) {
		req := valid()
		req.Signature = []byte("too-short")
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts absent signature", func(t *testing.T) {
		req := valid()
		req.Signature = nil
		require.NoError(t, req.Validate())
	})
}

func TestValidateArchetype(t *testing.T) {
	tests := []struct {
		name      string
		archetype string
		wantErr   bool
	}{
		{"simple label", "explorer", false},
		{"mixed case with digits", "Voyager_2024", false},
		{"single character", "x", false},
		{"maximum length", strings.Repeat("a", 32), false},
		{"empty", "", true},
		{"over maximum length", strings.Repeat("a", 33), true},
		{"hyphen", "night-owl", true},
		{"space", "night owl", true},
		{"unicode", "étoile", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchetype(tt.archetype)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseContentHash(t *testing.T) {
	t.Run("round-trips through record", func(t *testing.T) {
		raw := strings.Repeat("0f", 32)
		hash, err := ParseContentHash(raw)
		require.NoError(t, err)

		record := WrapRecord{ContentHash: hash}
		assert.Equal(t, raw, record.HashHex())
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseContentHash("abcd")
		require.Error(t, err)
	})

	t.Run("rejects non-hex characters", func(t *testing.T) {
		_, err := ParseContentHash(strings.Repeat("zz", 32))
		require.Error(t, err)
	})
}

func TestAdminRecordValidate(t *testing.T) {
	t.Run("capability deployment carries no key", func(t *testing.T) {
		rec := AdminRecord{Admin: "GADMIN"}
		require.NoError(t, rec.Validate())
		assert.False(t, rec.HasKey())
	})

	t.Run("signature deployment carries a 32-byte key", func(t *testing.T) {
		rec := AdminRecord{Admin: "GADMIN", PublicKey: make([]byte, 32)}
		require.NoError(t, rec.Validate())
		assert.True(t, rec.HasKey())
	})

	t.Run("rejects malformed key", func(t *testing.T) {
		rec := AdminRecord{Admin: "GADMIN", PublicKey: make([]byte, 16)}
		require.Error(t, rec.Validate())
	})

	t.Run("rejects empty identity", func(t *testing.T) {
		rec := AdminRecord{}
		require.Error(t, rec.Validate())
	})
}
