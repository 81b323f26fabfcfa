package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wrapregistry/internal/registry/authz"
	"wrapregistry/internal/registry/models"
	"wrapregistry/internal/registry/payload"
	"wrapregistry/internal/registry/store"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
)

const testInstance = id.InstanceID("reg-test")

var fixedNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.MemoryStore
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)
	s.public, s.private = public, private
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
}

func (s *ServiceSuite) capabilityService() *Service {
	return New(s.store, authz.NewCapabilityGate(), testInstance, WithClock(fixedClock))
}

func (s *ServiceSuite) signatureService() *Service {
	return New(s.store, authz.NewSignatureGate(testInstance), testInstance, WithClock(fixedClock))
}

// sign produces the detached admin signature for one mint tuple.
func (s *ServiceSuite) sign(user id.AccountID, period uint64, archetype string, hash [32]byte) []byte {
	return ed25519.Sign(s.private, payload.Canonicalize(testInstance, user, period, archetype, hash))
}

func contentHash(seed byte) [32]byte {
	var hash [32]byte
	for i := range hash {
		hash[i] = seed
	}
	return hash
}

func (s *ServiceSuite) TestInitialize() {
	svc := s.capabilityService()

	s.Run("first initialization succeeds", func() {
		s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

		admin, err := svc.Admin(s.ctx)
		s.Require().NoError(err)
		s.Require().NotNil(admin)
		s.Equal(id.AccountID("GADMIN"), admin.Admin)
		s.False(admin.HasKey())
		s.Equal(fixedNow, admin.UpdatedAt)
	})

	s.Run("second initialization fails", func() {
		err := svc.Initialize(s.ctx, "GUSURPER", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyInitialized))

		admin, err := svc.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(id.AccountID("GADMIN"), admin.Admin, "losing initialization must not change the admin")
	})

	s.Run("empty admin rejected", func() {
		err := s.capabilityService().Initialize(s.ctx, "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("truncated key rejected", func() {
		err := New(store.NewMemory(), authz.NewCapabilityGate(), testInstance).
			Initialize(s.ctx, "GADMIN", make([]byte, 16))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestMintRequiresInitialization() {
	svc := s.capabilityService()

	_, err := svc.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 202501, Archetype: "architect",
		ContentHash: contentHash(0x01), Caller: "GADMIN",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))
}

func (s *ServiceSuite) TestMintWithCapability() {
	svc := s.capabilityService()
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

	request := func() *models.MintRequest {
		return &models.MintRequest{
			User: "alice", Period: 202501, Archetype: "architect",
			ContentHash: contentHash(0x01), Caller: "GADMIN",
		}
	}

	s.Run("admin mints successfully", func() {
		record, err := svc.Mint(s.ctx, request())
		s.Require().NoError(err)
		s.Equal(id.AccountID("alice"), record.User)
		s.Equal(uint64(202501), record.Period)
		s.Equal("architect", record.Archetype)
		s.Equal(contentHash(0x01), record.ContentHash)
		s.Equal(fixedNow, record.MintedAt)

		balance, err := svc.BalanceOf(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(uint64(1), balance)
	})

	s.Run("identical replay fails", func() {
		_, err := svc.Mint(s.ctx, request())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWrapAlreadyExists))
	})

	s.Run("replay with different archetype and hash still fails", func() {
		req := request()
		req.Archetype = "explorer"
		req.ContentHash = contentHash(0xFF)
		_, err := svc.Mint(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWrapAlreadyExists))

		record, err := svc.GetWrap(s.ctx, "alice", 202501)
		s.Require().NoError(err)
		s.Equal("architect", record.Archetype, "the original record must survive the replay")
	})

	s.Run("failed mint does not move the counter", func() {
		balance, err := svc.BalanceOf(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(uint64(1), balance)
	})

	s.Run("non-admin caller is rejected", func() {
		req := request()
		req.Period = 202502
		req.Caller = "mallory"
		_, err := svc.Mint(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("anonymous caller is rejected", func() {
		req := request()
		req.Period = 202502
		req.Caller = ""
		_, err := svc.Mint(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("invalid input never reaches the store", func() {
		req := request()
		req.Period = 0
		_, err := svc.Mint(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		req = request()
		req.Archetype = "not valid!"
		_, err = svc.Mint(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestMintWithSignature() {
	svc := s.signatureService()
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", s.public))

	hash1 := contentHash(0x01)

	s.Run("user submits an admin-signed mint", func() {
		record, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 202501, Archetype: "architect",
			ContentHash: hash1,
			Caller:      "alice", // submitter identity is irrelevant to the gate
			Signature:   s.sign("alice", 202501, "architect", hash1),
		})
		s.Require().NoError(err)
		s.Equal(uint64(202501), record.Period)
	})

	s.Run("identical replay fails on uniqueness, not on the signature", func() {
		_, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 202501, Archetype: "architect",
			ContentHash: hash1,
			Signature:   s.sign("alice", 202501, "architect", hash1),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWrapAlreadyExists))
	})

	s.Run("hash differing from the signed payload fails", func() {
		_, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 202502, Archetype: "architect",
			ContentHash: contentHash(0x02),
			Signature:   s.sign("alice", 202502, "architect", hash1),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	s.Run("freshly signed second period succeeds and counts", func() {
		hash3 := contentHash(0x03)
		_, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 202502, Archetype: "architect",
			ContentHash: hash3,
			Signature:   s.sign("alice", 202502, "architect", hash3),
		})
		s.Require().NoError(err)

		balance, err := svc.BalanceOf(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(uint64(2), balance)
	})

	s.Run("flipped signature bit fails", func() {
		hash := contentHash(0x04)
		signature := s.sign("bob", 202501, "architect", hash)
		signature[0] ^= 0x01
		_, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "bob", Period: 202501, Archetype: "architect",
			ContentHash: hash, Signature: signature,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	s.Run("missing signature fails even for the admin caller", func() {
		_, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "bob", Period: 202501, Archetype: "architect",
			ContentHash: contentHash(0x04), Caller: "GADMIN",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})

	s.Run("foreign key never verifies", func() {
		_, foreign, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)
		hash := contentHash(0x05)
		_, err = svc.Mint(s.ctx, &models.MintRequest{
			User: "bob", Period: 202501, Archetype: "architect",
			ContentHash: hash,
			Signature:   ed25519.Sign(foreign, payload.Canonicalize(testInstance, "bob", 202501, "architect", hash)),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))
	})
}

// TestCounterMatchesDistinctPeriods is the counter-consistency
// property: the balance always equals the number of distinct periods
// with a readable record.
func (s *ServiceSuite) TestCounterMatchesDistinctPeriods() {
	svc := s.capabilityService()
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

	periods := []uint64{202501, 202502, 202503}
	for _, period := range periods {
		_, err := svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: period, Archetype: "architect",
			ContentHash: contentHash(byte(period)), Caller: "GADMIN",
		})
		s.Require().NoError(err)
	}
	_, err := svc.Mint(s.ctx, &models.MintRequest{
		User: "bob", Period: 202501, Archetype: "explorer",
		ContentHash: contentHash(0x0B), Caller: "GADMIN",
	})
	s.Require().NoError(err)

	var readable uint64
	for _, period := range periods {
		if _, err := svc.GetWrap(s.ctx, "alice", period); err == nil {
			readable++
		}
	}

	balance, err := svc.BalanceOf(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(readable, balance)
	s.Equal(uint64(3), balance)

	count, err := svc.WrapCount(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(uint64(1), count)

	count, err = svc.WrapCount(s.ctx, "carol")
	s.Require().NoError(err)
	s.Equal(uint64(0), count, "unknown users count zero")
}

func (s *ServiceSuite) TestMintTimestampsComeFromClock() {
	now := fixedNow
	svc := New(s.store, authz.NewCapabilityGate(), testInstance,
		WithClock(func() time.Time { return now }))
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

	first, err := svc.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 1, Archetype: "architect",
		ContentHash: contentHash(0x01), Caller: "GADMIN",
	})
	s.Require().NoError(err)
	s.Equal(fixedNow, first.MintedAt)

	now = now.Add(time.Hour)
	second, err := svc.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 2, Archetype: "architect",
		ContentHash: contentHash(0x02), Caller: "GADMIN",
	})
	s.Require().NoError(err)
	s.Equal(fixedNow.Add(time.Hour), second.MintedAt)
}

func (s *ServiceSuite) TestMintStagesOneEvent() {
	svc := s.capabilityService()
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

	record, err := svc.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 202501, Archetype: "architect",
		ContentHash: contentHash(0x01), Caller: "GADMIN",
	})
	s.Require().NoError(err)

	staged, err := s.store.ListUnpublishedEvents(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(staged, 1)

	event := staged[0]
	s.Equal(testInstance, event.Instance)
	s.Equal(id.AccountID("alice"), event.User)
	s.Equal(uint64(202501), event.Period)
	s.Equal("architect", event.Archetype)
	s.Equal(record.MintedAt, event.MintedAt)
	s.Equal([]string{"mint", "alice", "202501"}, event.Topics())

	// A rejected mint stages nothing.
	_, err = svc.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 202501, Archetype: "architect",
		ContentHash: contentHash(0x01), Caller: "GADMIN",
	})
	s.Require().Error(err)

	staged, err = s.store.ListUnpublishedEvents(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(staged, 1)
}

func (s *ServiceSuite) TestUpdateAdmin() {
	s.Run("requires initialization", func() {
		err := s.capabilityService().UpdateAdmin(s.ctx, "GADMIN", "GNEXT", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotInitialized))
	})

	s.Run("only the current admin may rotate", func() {
		svc := s.capabilityService()
		s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

		err := svc.UpdateAdmin(s.ctx, "mallory", "GNEXT", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		err = svc.UpdateAdmin(s.ctx, "", "GNEXT", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rotation hands the capability to the new admin", func() {
		svc := New(store.NewMemory(), authz.NewCapabilityGate(), testInstance, WithClock(fixedClock))
		s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))
		s.Require().NoError(svc.UpdateAdmin(s.ctx, "GADMIN", "GNEXT", nil))

		admin, err := svc.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(id.AccountID("GNEXT"), admin.Admin)

		err = svc.UpdateAdmin(s.ctx, "GADMIN", "GTHIRD", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "the old admin keeps no residual authority")

		_, err = svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 1, Archetype: "architect",
			ContentHash: contentHash(0x01), Caller: "GNEXT",
		})
		s.Require().NoError(err)
	})

	s.Run("keyless deployment cannot introduce a key", func() {
		svc := New(store.NewMemory(), authz.NewCapabilityGate(), testInstance, WithClock(fixedClock))
		s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

		err := svc.UpdateAdmin(s.ctx, "GADMIN", "GNEXT", s.public)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("keyed deployment must rotate identity and key together", func() {
		memory := store.NewMemory()
		svc := New(memory, authz.NewSignatureGate(testInstance), testInstance, WithClock(fixedClock))
		s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", s.public))

		err := svc.UpdateAdmin(s.ctx, "GADMIN", "GNEXT", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "dropping the key would strand signature verification")

		nextPublic, nextPrivate, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)
		s.Require().NoError(svc.UpdateAdmin(s.ctx, "GADMIN", "GNEXT", nextPublic))

		// Only the new key authorizes mints now.
		hash := contentHash(0x07)
		_, err = svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 1, Archetype: "architect",
			ContentHash: hash,
			Signature:   s.sign("alice", 1, "architect", hash),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))

		_, err = svc.Mint(s.ctx, &models.MintRequest{
			User: "alice", Period: 1, Archetype: "architect",
			ContentHash: hash,
			Signature:   ed25519.Sign(nextPrivate, payload.Canonicalize(testInstance, "alice", 1, "architect", hash)),
		})
		s.Require().NoError(err)
	})

	s.Run("empty new admin rejected", func() {
		svc := New(store.NewMemory(), authz.NewCapabilityGate(), testInstance, WithClock(fixedClock))
		s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

		err := svc.UpdateAdmin(s.ctx, "GADMIN", "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestMetadata() {
	meta := s.capabilityService().Metadata()
	s.Equal("Stellar Wrap Registry", meta.Name)
	s.Equal("WRAP", meta.Symbol)
	s.Equal(uint32(0), meta.Decimals)
}

func (s *ServiceSuite) TestNonTransferability() {
	svc := s.capabilityService()
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))
	_, err := svc.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 1, Archetype: "architect",
		ContentHash: contentHash(0x01), Caller: "GADMIN",
	})
	s.Require().NoError(err)

	checks := map[string]error{
		"transfer":      svc.Transfer(s.ctx, "alice", "bob", 1),
		"transfer_from": svc.TransferFrom(s.ctx, "GADMIN", "alice", "bob", 1),
		"approve":       svc.Approve(s.ctx, "alice", "bob", 1),
		"burn":          svc.Burn(s.ctx, "alice", 1),
	}
	for name, err := range checks {
		s.Require().Error(err, name)
		s.True(dErrors.HasCode(err, dErrors.CodeTransferNotAllowed), name)
	}

	// The record and counter never moved.
	record, err := svc.GetWrap(s.ctx, "alice", 1)
	s.Require().NoError(err)
	s.Equal(id.AccountID("alice"), record.User)

	balance, err := svc.BalanceOf(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(uint64(1), balance)
}

// TestInstanceIndependence verifies that two deployed instances never
// share state and that signatures bind to the instance they were
// produced for.
func (s *ServiceSuite) TestInstanceIndependence() {
	first := New(store.NewMemory(), authz.NewSignatureGate("reg-one"), "reg-one", WithClock(fixedClock))
	second := New(store.NewMemory(), authz.NewSignatureGate("reg-two"), "reg-two", WithClock(fixedClock))
	s.Require().NoError(first.Initialize(s.ctx, "GADMIN", s.public))
	s.Require().NoError(second.Initialize(s.ctx, "GADMIN", s.public))

	hash := contentHash(0x01)
	signatureForFirst := ed25519.Sign(s.private, payload.Canonicalize("reg-one", "alice", 202501, "architect", hash))

	_, err := first.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 202501, Archetype: "architect",
		ContentHash: hash, Signature: signatureForFirst,
	})
	s.Require().NoError(err)

	// The same tuple is still free on the second instance, but the
	// first instance's signature does not carry over.
	_, err = second.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 202501, Archetype: "architect",
		ContentHash: hash, Signature: signatureForFirst,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidSignature))

	signatureForSecond := ed25519.Sign(s.private, payload.Canonicalize("reg-two", "alice", 202501, "architect", hash))
	_, err = second.Mint(s.ctx, &models.MintRequest{
		User: "alice", Period: 202501, Archetype: "architect",
		ContentHash: hash, Signature: signatureForSecond,
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestGetWrapAbsent() {
	svc := s.capabilityService()
	s.Require().NoError(svc.Initialize(s.ctx, "GADMIN", nil))

	_, err := svc.GetWrap(s.ctx, "alice", 999999)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	has, err := svc.HasWrap(s.ctx, "alice", 999999)
	s.Require().NoError(err)
	s.False(has)
}
