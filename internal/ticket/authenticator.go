package ticket

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"padron/internal/platform/config"
	dErrors "padron/pkg/domain-errors"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padron_ticket_cache_hits_total",
		Help: "Authentications served from the ticket cache without a remote call",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padron_ticket_cache_misses_total",
		Help: "Authentications that required a fresh login against the remote service",
	})
	loginDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "padron_ticket_login_duration_seconds",
		Help:    "Latency of full sign-and-submit logins",
		Buckets: prometheus.DefBuckets,
	})
)

// AuthEndpointURL returns the login service URL for the environment. Each
// mode has a fixed, distinct endpoint.
func AuthEndpointURL(mode config.Mode) string {
	if mode == config.ModeProduction {
		return "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	}
	return "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
}

// Signer produces the cryptographic envelope (CMS) for a login request.
// The wire-level details live outside this package.
type Signer interface {
	Sign(request []byte, cred Credential) ([]byte, error)
}

// Transport submits a signed envelope to the remote service and returns the
// raw response body.
type Transport interface {
	Send(ctx context.Context, envelope []byte, endpointURL string) ([]byte, error)
}

// Authenticator owns the TTL policy, fingerprint computation and the login
// protocol. The cache-hit path is the dominant one in steady state and is
// side-effect free.
//
// Two concurrent authentications for the same fingerprint may both miss and
// both log in; that wastes at most one remote call and cannot corrupt the
// store, since Put is atomic and last writer wins.
type Authenticator struct {
	store     Store
	signer    Signer
	transport Transport
	endpoint  string
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
	tracer    trace.Tracer
}

// Option configures an Authenticator.
type Option func(*Authenticator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = logger }
}

// WithTTL overrides the default validity window requested for new tickets.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authenticator) { a.ttl = ttl }
}

// WithClock injects a time source for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator wires the cache store and the external signing and
// transport collaborators.
func NewAuthenticator(store Store, signer Signer, transport Transport, endpoint string, opts ...Option) (*Authenticator, error) {
	if store == nil {
		return nil, fmt.Errorf("ticket store is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	a := &Authenticator{
		store:     store,
		signer:    signer,
		transport: transport,
		endpoint:  endpoint,
		ttl:       config.TicketTTL,
		logger:    slog.Default(),
		now:       time.Now,
		tracer:    otel.Tracer("padron/ticket"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate returns a valid ticket for the service, reusing the cached
// one when its validity window is still open. Failures are never retried
// here; the caller decides.
func (a *Authenticator) Authenticate(ctx context.Context, service string, cred Credential) (Ticket, error) {
	if cred.Empty() {
		return Ticket{}, dErrors.New(dErrors.CodeConfigurationMissing,
			"certificate or private key not configured")
	}

	fp := ComputeFingerprint(service, cred)

	cached, err := a.store.Get(ctx, fp)
	if err == nil && cached.Usable(a.now()) {
		cacheHits.Inc()
		return cached.Value(), nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		// Store trouble reads as a miss; a fresh login still works.
		a.logger.WarnContext(ctx, "ticket cache read failed, refreshing",
			"service", service, "error", err)
	}
	cacheMisses.Inc()

	ctx, span := a.tracer.Start(ctx, "ticket.login")
	defer span.End()

	start := a.now()
	fresh, err := a.login(ctx, service, cred)
	if err != nil {
		return Ticket{}, err
	}
	loginDuration.Observe(time.Since(start).Seconds())

	entry := CachedTicket{
		Fingerprint: fp,
		Token:       fresh.Token,
		Sign:        fresh.Sign,
		IssuedAt:    start,
		ExpiresAt:   start.Add(a.ttl),
	}
	if err := a.store.Put(ctx, fp, entry); err != nil {
		// The ticket itself is valid; losing the cache entry only costs
		// the next caller a login.
		a.logger.WarnContext(ctx, "ticket cache write failed",
			"service", service, "error", err)
	}

	a.logger.InfoContext(ctx, "obtained fresh access ticket",
		"service", service, "expires_at", entry.ExpiresAt)
	return fresh, nil
}

// Verify performs a full authentication round and discards the result. Used
// when an operator saves credentials, mirroring the remote's own check.
func (a *Authenticator) Verify(ctx context.Context, service string, cred Credential) error {
	_, err := a.Authenticate(ctx, service, cred)
	return err
}

func (a *Authenticator) login(ctx context.Context, service string, cred Credential) (Ticket, error) {
	request, err := buildLoginRequest(service, a.now(), a.ttl)
	if err != nil {
		return Ticket{}, dErrors.Wrap(err, dErrors.CodeAuthenticationFailed,
			"build login request for "+service)
	}

	envelope, err := a.signer.Sign(request, cred)
	if err != nil {
		return Ticket{}, dErrors.Wrap(err, dErrors.CodeAuthenticationFailed,
			"sign login request for "+service)
	}

	raw, err := a.transport.Send(ctx, envelope, a.endpoint)
	if err != nil {
		return Ticket{}, dErrors.Wrap(err, dErrors.CodeTransport,
			"submit login request for "+service)
	}

	ticket, err := parseLoginResponse(raw)
	if err != nil {
		return Ticket{}, dErrors.Wrap(err, dErrors.CodeAuthenticationFailed,
			"parse login response for "+service)
	}
	return ticket, nil
}

// loginTicketRequest is the time-boxed assertion naming the target service
// and the requested validity window.
type loginTicketRequest struct {
	XMLName xml.Name           `xml:"loginTicketRequest"`
	Version string             `xml:"version,attr"`
	Header  loginRequestHeader `xml:"header"`
	Service string             `xml:"service"`
}

type loginRequestHeader struct {
	UniqueID       uint32 `xml:"uniqueId"`
	GenerationTime string `xml:"generationTime"`
	ExpirationTime string `xml:"expirationTime"`
}

func buildLoginRequest(service string, now time.Time, ttl time.Duration) ([]byte, error) {
	req := loginTicketRequest{
		Version: "1.0",
		Header: loginRequestHeader{
			UniqueID: rand.Uint32(),
			// The remote rejects requests generated "in the future";
			// backdate generation slightly to absorb clock skew.
			GenerationTime: now.Add(-time.Minute).Format(time.RFC3339),
			ExpirationTime: now.Add(ttl).Format(time.RFC3339),
		},
		Service: service,
	}
	raw, err := xml.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), raw...), nil
}

type loginTicketResponse struct {
	XMLName     xml.Name `xml:"loginTicketResponse"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

type remoteFault struct {
	XMLName xml.Name `xml:"Envelope"`
	Message string   `xml:"Body>Fault>faultstring"`
}

// parseLoginResponse extracts token and sign, surfacing remote-reported
// faults with their message verbatim. Credential material never appears in
// errors.
func parseLoginResponse(raw []byte) (Ticket, error) {
	var resp loginTicketResponse
	if err := xml.Unmarshal(raw, &resp); err == nil &&
		resp.Credentials.Token != "" && resp.Credentials.Sign != "" {
		return Ticket{Token: resp.Credentials.Token, Sign: resp.Credentials.Sign}, nil
	}

	var fault remoteFault
	if err := xml.Unmarshal(raw, &fault); err == nil && fault.Message != "" {
		return Ticket{}, fmt.Errorf("remote fault: %s", fault.Message)
	}
	return Ticket{}, errors.New("malformed login response")
}
