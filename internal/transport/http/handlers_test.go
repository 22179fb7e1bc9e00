package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"padron/internal/identifier"
	"padron/internal/jwtauth"
	"padron/internal/party"
	"padron/internal/platform/logger"
	syncengine "padron/internal/sync"
	"padron/internal/ticket"
	dErrors "padron/pkg/domain-errors"
)

type fakeSyncer struct {
	oneOutcome syncengine.Outcome
	storedErr  error
}

func (f *fakeSyncer) SyncOne(_ context.Context, p *party.Party) syncengine.Outcome {
	out := f.oneOutcome
	out.PartyID = p.ID
	return out
}

func (f *fakeSyncer) SyncStored(_ context.Context) (*syncengine.BatchReport, error) {
	if f.storedErr != nil {
		return nil, f.storedErr
	}
	report := syncengine.NewBatchReport()
	report.Outcomes = append(report.Outcomes, syncengine.Outcome{
		PartyID: "p1", Status: syncengine.StatusUpdated,
	})
	report.FinishedAt = time.Now()
	return report, nil
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string, _ ticket.Credential) error {
	return f.err
}

type HandlersSuite struct {
	suite.Suite
	ctx      context.Context
	syncer   *fakeSyncer
	verifier *fakeVerifier
	store    *party.MemoryStore
	jwt      *jwtauth.Service
	server   http.Handler
}

func (s *HandlersSuite) SetupTest() {
	s.ctx = context.Background()
	s.syncer = &fakeSyncer{oneOutcome: syncengine.Outcome{Status: syncengine.StatusUpdated}}
	s.verifier = &fakeVerifier{}
	s.store = party.NewMemoryStore()
	s.jwt = jwtauth.NewService("test-key", "padron")

	log := logger.New()
	cred := ticket.Credential{Certificate: []byte("c"), PrivateKey: []byte("k")}
	handler := NewHandler(s.syncer, s.store, s.verifier, cred, "svc", log)
	s.server = NewRouter(handler, s.jwt, log)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) request(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) token() string {
	token, err := s.jwt.GenerateToken("tester", time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlersSuite) TestHealthAndMetricsAreOpen() {
	s.Equal(http.StatusOK, s.request(http.MethodGet, "/healthz", "").Code)
	s.Equal(http.StatusOK, s.request(http.MethodGet, "/metrics", "").Code)
}

func (s *HandlersSuite) TestAuthGuard() {
	s.Run("rejects missing token", func() {
		rec := s.request(http.MethodPost, "/sync", "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("rejects a foreign token", func() {
		other := jwtauth.NewService("other-key", "padron")
		token, err := other.GenerateToken("tester", time.Hour)
		s.Require().NoError(err)

		rec := s.request(http.MethodPost, "/sync", token)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *HandlersSuite) TestSyncAll() {
	rec := s.request(http.MethodPost, "/sync", s.token())
	s.Require().Equal(http.StatusOK, rec.Code)

	var report syncengine.BatchReport
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &report))
	s.NotEmpty(report.ID)
	s.Require().Len(report.Outcomes, 1)
	s.Equal(syncengine.StatusUpdated, report.Outcomes[0].Status)
}

func (s *HandlersSuite) TestSyncParty() {
	s.Run("syncs a known party", func() {
		p := &party.Party{ID: "p1", Identifiers: []party.Identifier{
			{Kind: identifier.KindCUIT, Code: "20123456786"},
		}}
		s.Require().NoError(s.store.Save(s.ctx, p))

		rec := s.request(http.MethodPost, "/parties/p1/sync", s.token())
		s.Require().Equal(http.StatusOK, rec.Code)

		var outcome syncengine.Outcome
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &outcome))
		s.Equal("p1", outcome.PartyID)
	})

	s.Run("returns 404 for an unknown party", func() {
		rec := s.request(http.MethodPost, "/parties/missing/sync", s.token())
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("maps a failed outcome onto the error status", func() {
		p := &party.Party{ID: "p2"}
		s.Require().NoError(s.store.Save(s.ctx, p))
		s.syncer.oneOutcome = syncengine.Outcome{
			Status: syncengine.StatusFailed,
			Err:    dErrors.New(dErrors.CodeInvalidIdentifier, "bad checksum"),
			Reason: "bad checksum",
		}

		rec := s.request(http.MethodPost, "/parties/p2/sync", s.token())
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlersSuite) TestVerifyCredential() {
	s.Run("reports a working credential", func() {
		rec := s.request(http.MethodPost, "/credential/verify", s.token())
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("maps authentication failures", func() {
		s.verifier.err = dErrors.New(dErrors.CodeAuthenticationFailed, "remote fault")
		rec := s.request(http.MethodPost, "/credential/verify", s.token())
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("maps missing configuration", func() {
		s.verifier.err = dErrors.New(dErrors.CodeConfigurationMissing, "no certificate")
		rec := s.request(http.MethodPost, "/credential/verify", s.token())
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}
