package httptransport

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "wrapregistry/pkg/domain-errors"
)

// MintRequestSuite tests MintRequest parsing and validation.
type MintRequestSuite struct {
	suite.Suite
}

func TestMintRequestSuite(t *testing.T) {
	suite.Run(t, new(MintRequestSuite))
}

func (s *MintRequestSuite) validRequest() *MintRequest {
	return &MintRequest{
		User:        userAccount,
		Period:      2024,
		Archetype:   "explorer",
		ContentHash: contentHash,
	}
}

func (s *MintRequestSuite) TestParse() {
	s.Run("valid request parses", func() {
		req := s.validRequest()
		parsed, err := req.Parse()
		s.Require().NoError(err)
		s.Equal(userAccount, parsed.User.String())
		s.Equal(uint64(2024), parsed.Period)
		s.Equal("explorer", parsed.Archetype)
		s.Equal(contentHash, hex.EncodeToString(parsed.ContentHash[:]))
		s.Empty(parsed.Signature)
		s.Empty(parsed.Caller)
	})

	s.Run("signature decodes from base64", func() {
		req := s.validRequest()
		req.Signature = base64.StdEncoding.EncodeToString(make([]byte, 64))

		parsed, err := req.Parse()
		s.Require().NoError(err)
		s.Len(parsed.Signature, 64)
	})

	s.Run("empty user rejected", func() {
		req := s.validRequest()
		req.User = ""

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("user with invalid characters rejected", func() {
		req := s.validRequest()
		req.User = "not a valid id!"

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("short content hash rejected", func() {
		req := s.validRequest()
		req.ContentHash = "abcd"

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("non-hex content hash rejected", func() {
		req := s.validRequest()
		req.ContentHash = strings.Repeat("zz", 32)

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("zero period rejected", func() {
		req := s.validRequest()
		req.Period = 0

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("archetype with spaces rejected", func() {
		req := s.validRequest()
		req.Archetype = "night owl"

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("archetype over 32 characters rejected", func() {
		req := s.validRequest()
		req.Archetype = strings.Repeat("a", 33)

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("signature that is not base64 rejected", func() {
		req := s.validRequest()
		req.Signature = "%%%"

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("signature with wrong length rejected", func() {
		req := s.validRequest()
		req.Signature = base64.StdEncoding.EncodeToString(make([]byte, 16))

		_, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// InitializeRequestSuite tests InitializeRequest parsing.
type InitializeRequestSuite struct {
	suite.Suite
}

func TestInitializeRequestSuite(t *testing.T) {
	suite.Run(t, new(InitializeRequestSuite))
}

func (s *InitializeRequestSuite) TestParse() {
	s.Run("admin without key parses", func() {
		req := &InitializeRequest{Admin: adminAccount}
		admin, key, err := req.Parse()
		s.Require().NoError(err)
		s.Equal(adminAccount, admin.String())
		s.Nil(key)
	})

	s.Run("base64 key decodes", func() {
		raw := make([]byte, 32)
		req := &InitializeRequest{
			Admin:     adminAccount,
			PublicKey: base64.StdEncoding.EncodeToString(raw),
		}
		_, key, err := req.Parse()
		s.Require().NoError(err)
		s.Len(key, 32)
	})

	s.Run("empty admin rejected", func() {
		req := &InitializeRequest{}
		_, _, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("key that is not base64 rejected", func() {
		req := &InitializeRequest{Admin: adminAccount, PublicKey: "***"}
		_, _, err := req.Parse()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
