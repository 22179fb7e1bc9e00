package ticket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"padron/internal/platform/config"
	dErrors "padron/pkg/domain-errors"
)

const loginOK = `<?xml version="1.0"?>
<loginTicketResponse version="1.0">
  <credentials>
    <token>tok-1</token>
    <sign>sig-1</sign>
  </credentials>
</loginTicketResponse>`

const loginFault = `<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <soapenv:Fault>
      <faultcode>cms.cert.expired</faultcode>
      <faultstring>certificate has expired</faultstring>
    </soapenv:Fault>
  </soapenv:Body>
</soapenv:Envelope>`

type fakeSigner struct {
	calls int
	err   error
}

func (f *fakeSigner) Sign(request []byte, _ Credential) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("signed:"), request...), nil
}

type fakeTransport struct {
	calls    int
	response []byte
	err      error
}

func (f *fakeTransport) Send(_ context.Context, _ []byte, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type failingStore struct {
	getErr error
	putErr error
	inner  Store
}

func (f *failingStore) Get(ctx context.Context, fp Fingerprint) (CachedTicket, error) {
	if f.getErr != nil {
		return CachedTicket{}, f.getErr
	}
	return f.inner.Get(ctx, fp)
}

func (f *failingStore) Put(ctx context.Context, fp Fingerprint, t CachedTicket) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.inner.Put(ctx, fp, t)
}

type AuthenticatorSuite struct {
	suite.Suite
	ctx       context.Context
	store     *MemoryStore
	signer    *fakeSigner
	transport *fakeTransport
	cred      Credential
	now       time.Time
}

func (s *AuthenticatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.signer = &fakeSigner{}
	s.transport = &fakeTransport{response: []byte(loginOK)}
	s.cred = Credential{Certificate: []byte("cert"), PrivateKey: []byte("key")}
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestAuthenticatorSuite(t *testing.T) {
	suite.Run(t, new(AuthenticatorSuite))
}

func (s *AuthenticatorSuite) newAuthenticator(store Store) *Authenticator {
	auth, err := NewAuthenticator(store, s.signer, s.transport, AuthEndpointURL(config.ModeStaging),
		WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	return auth
}

func (s *AuthenticatorSuite) TestColdCacheLogsInAndCaches() {
	auth := s.newAuthenticator(s.store)

	tkt, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)
	s.Equal(Ticket{Token: "tok-1", Sign: "sig-1"}, tkt)
	s.Equal(1, s.transport.calls)

	cached, err := s.store.Get(s.ctx, ComputeFingerprint("svc", s.cred))
	s.Require().NoError(err)
	s.Equal("tok-1", cached.Token)
	s.Equal(s.now.Add(config.TicketTTL), cached.ExpiresAt)
}

func (s *AuthenticatorSuite) TestCacheHitSkipsRemote() {
	auth := s.newAuthenticator(s.store)

	_, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)
	for i := 0; i < 5; i++ {
		tkt, err := auth.Authenticate(s.ctx, "svc", s.cred)
		s.Require().NoError(err)
		s.Equal("tok-1", tkt.Token)
	}
	s.Equal(1, s.transport.calls)
	s.Equal(1, s.signer.calls)
}

func (s *AuthenticatorSuite) TestRefreshAfterExpiry() {
	auth := s.newAuthenticator(s.store)

	_, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)

	// A ticket expiring exactly now counts as expired.
	s.now = s.now.Add(config.TicketTTL)
	_, err = auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)
	s.Equal(2, s.transport.calls)
}

func (s *AuthenticatorSuite) TestCorruptCacheEntryReadsAsMiss() {
	fp := ComputeFingerprint("svc", s.cred)
	s.Require().NoError(s.store.Put(s.ctx, fp, CachedTicket{
		Fingerprint: fp,
		ExpiresAt:   s.now.Add(time.Hour),
	}))
	auth := s.newAuthenticator(s.store)

	tkt, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)
	s.Equal("tok-1", tkt.Token)
	s.Equal(1, s.transport.calls)
}

func (s *AuthenticatorSuite) TestEmptyCredentialFailsFast() {
	auth := s.newAuthenticator(s.store)

	_, err := auth.Authenticate(s.ctx, "svc", Credential{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
	s.Equal(0, s.transport.calls)
	s.Equal(0, s.signer.calls)
}

func (s *AuthenticatorSuite) TestRemoteFaultSurfacedVerbatim() {
	s.transport.response = []byte(loginFault)
	auth := s.newAuthenticator(s.store)

	_, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))
	s.Contains(err.Error(), "certificate has expired")
}

func (s *AuthenticatorSuite) TestFailedLoginWritesNothing() {
	s.transport.err = errors.New("connection refused")
	auth := s.newAuthenticator(s.store)

	_, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransport))

	_, err = s.store.Get(s.ctx, ComputeFingerprint("svc", s.cred))
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *AuthenticatorSuite) TestSignerFailurePropagates() {
	s.signer.err = errors.New("bad key material")
	auth := s.newAuthenticator(s.store)

	_, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))
	s.Equal(0, s.transport.calls)
}

func (s *AuthenticatorSuite) TestCacheWriteFailureStillReturnsTicket() {
	store := &failingStore{inner: s.store, putErr: errors.New("disk full")}
	auth := s.newAuthenticator(store)

	tkt, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)
	s.Equal("tok-1", tkt.Token)
}

func (s *AuthenticatorSuite) TestCacheReadFailureRefreshes() {
	store := &failingStore{inner: s.store, getErr: errors.New("io error")}
	auth := s.newAuthenticator(store)

	tkt, err := auth.Authenticate(s.ctx, "svc", s.cred)
	s.Require().NoError(err)
	s.Equal("tok-1", tkt.Token)
	s.Equal(1, s.transport.calls)
}

func (s *AuthenticatorSuite) TestVerify() {
	s.Run("succeeds with a working credential", func() {
		auth := s.newAuthenticator(s.store)
		s.NoError(auth.Verify(s.ctx, "svc", s.cred))
	})

	s.Run("fails with an empty credential", func() {
		auth := s.newAuthenticator(s.store)
		err := auth.Verify(s.ctx, "svc", Credential{})
		s.True(dErrors.HasCode(err, dErrors.CodeConfigurationMissing))
	})
}

func (s *AuthenticatorSuite) TestFingerprint() {
	s.Run("identical inputs yield identical fingerprints", func() {
		a := ComputeFingerprint("svc", s.cred)
		b := ComputeFingerprint("svc", s.cred)
		s.Equal(a, b)
	})

	s.Run("service and credential both separate fingerprints", func() {
		base := ComputeFingerprint("svc", s.cred)
		s.NotEqual(base, ComputeFingerprint("other", s.cred))
		s.NotEqual(base, ComputeFingerprint("svc", Credential{
			Certificate: []byte("cert2"), PrivateKey: []byte("key"),
		}))
	})
}
