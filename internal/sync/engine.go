// Package sync orchestrates the census import: for each party it validates
// the tax identifier, obtains an access ticket, queries the taxpayer
// registry and maps the response onto the business records. One record's
// failure never aborts its siblings.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"padron/internal/audit"
	"padron/internal/identifier"
	"padron/internal/party"
	"padron/internal/platform/config"
	"padron/internal/refdata"
	"padron/internal/registry"
	"padron/internal/ticket"
	dErrors "padron/pkg/domain-errors"
)

// Authenticator is the slice of the ticket authenticator the engine needs.
type Authenticator interface {
	Authenticate(ctx context.Context, service string, cred ticket.Credential) (ticket.Ticket, error)
}

// OutcomePublisher receives per-record outcomes. Best-effort; publish
// failures are logged, never surfaced.
type OutcomePublisher interface {
	Publish(ctx context.Context, event audit.Event) error
}

// Engine runs single-party and batch synchronization against the registry.
type Engine struct {
	parties  party.Store
	registry registry.Client
	auth     Authenticator
	foreign  identifier.ForeignRegistry

	cred  ticket.Credential
	mode  config.Mode
	codes CodeTable

	publisher OutcomePublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCodeTable overrides the built-in tax-code mapping.
func WithCodeTable(table CodeTable) Option {
	return func(e *Engine) { e.codes = table }
}

// WithForeignRegistry enables validation of foreign identifiers.
func WithForeignRegistry(foreign identifier.ForeignRegistry) Option {
	return func(e *Engine) { e.foreign = foreign }
}

func WithPublisher(publisher OutcomePublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithWorkers enables bounded concurrency across distinct parties. The
// ticket cache is atomic per fingerprint, so concurrent items at most cost
// a redundant login, never corruption.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New wires the engine. The credential and mode come from configuration;
// they are checked per item so a misconfigured deployment produces
// reportable outcomes instead of a crash.
func New(parties party.Store, client registry.Client, auth Authenticator,
	cred ticket.Credential, mode config.Mode, opts ...Option) (*Engine, error) {

	if parties == nil {
		return nil, fmt.Errorf("party store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("registry client is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}

	e := &Engine{
		parties:  parties,
		registry: client,
		auth:     auth,
		cred:     cred,
		mode:     mode,
		codes:    DefaultCodeTable(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("padron/sync"),
		workers:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SyncOne refreshes a single party from the registry. The identifier is
// validated before any remote call; an invalid one saves the round trip.
func (e *Engine) SyncOne(ctx context.Context, p *party.Party) Outcome {
	ctx, span := e.tracer.Start(ctx, "sync.party")
	defer span.End()

	id, ok := p.TaxID()
	if !ok {
		partiesSkipped.Inc()
		return Outcome{PartyID: p.ID, Status: StatusSkipped}
	}

	if e.cred.Empty() || !e.mode.Valid() {
		return e.fail(ctx, p.ID, id.Code, dErrors.New(dErrors.CodeConfigurationMissing,
			"no certificate, key or environment mode configured"))
	}

	tid := identifier.TaxIdentifier{Raw: id.Code, Code: id.Code, Kind: id.Kind, CountryCode: id.CountryCode}
	if tid.Kind == "" || tid.Kind == identifier.KindUnrecognized {
		tid = identifier.Classify(id.Code, p.DocType, p.CountryCode)
	}
	tid.Code = identifier.Canonicalize(tid.Kind, tid.Code)
	if err := identifier.Validate(ctx, tid, e.foreign); err != nil {
		return e.fail(ctx, p.ID, id.Code, err)
	}

	tkt, err := e.auth.Authenticate(ctx, registry.Service, e.cred)
	if err != nil {
		return e.fail(ctx, p.ID, tid.Code, err)
	}

	rec, err := e.registry.Lookup(ctx, tid.Code, tkt, registry.EndpointURL(e.mode))
	if err != nil {
		return e.fail(ctx, p.ID, tid.Code, err)
	}

	update := mapRecord(p.ID, rec, e.codes)
	if err := e.parties.Apply(ctx, update); err != nil {
		return e.fail(ctx, p.ID, tid.Code,
			dErrors.Wrap(err, dErrors.CodeInternal, "apply registry update"))
	}

	partiesUpdated.Inc()
	e.logger.InfoContext(ctx, "party updated from registry",
		"party_id", p.ID, "identifier", tid.Code, "condition", update.Condition)
	return Outcome{PartyID: p.ID, Identifier: tid.Code, Status: StatusUpdated}
}

// SyncAll runs SyncOne for every party, isolating failures. Cancelling the
// context stops the batch after the in-flight items complete; committed
// items stay committed.
func (e *Engine) SyncAll(ctx context.Context, parties []*party.Party) *BatchReport {
	report := NewBatchReport()
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "sync.batch")
	defer span.End()

	if e.workers <= 1 {
		for _, p := range parties {
			if ctx.Err() != nil {
				break
			}
			outcome := e.SyncOne(ctx, p)
			e.publish(ctx, report.ID, outcome)
			report.Outcomes = append(report.Outcomes, outcome)
		}
	} else {
		outcomes := make([]Outcome, len(parties))
		done := make([]bool, len(parties))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, p := range parties {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				outcomes[i] = e.SyncOne(gctx, p)
				done[i] = true
				e.publish(gctx, report.ID, outcomes[i])
				return nil
			})
		}
		_ = g.Wait()
		for i := range outcomes {
			if done[i] {
				report.Outcomes = append(report.Outcomes, outcomes[i])
			}
		}
	}

	report.FinishedAt = time.Now()
	batchDuration.Observe(time.Since(start).Seconds())

	updated, skipped, failed := report.Counts()
	e.logger.InfoContext(ctx, "census import finished",
		"batch_id", report.ID,
		"updated", updated, "skipped", skipped, "failed", failed,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report
}

// SyncStored loads every party carrying a tax identifier and synchronizes
// the lot. This is the scheduled census import entry point.
func (e *Engine) SyncStored(ctx context.Context) (*BatchReport, error) {
	parties, err := e.parties.ListWithTaxID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list parties for census import")
	}
	return e.SyncAll(ctx, parties), nil
}

func (e *Engine) fail(ctx context.Context, partyID, code string, err error) Outcome {
	partiesFailed.Inc()
	e.logger.WarnContext(ctx, "party sync failed",
		"party_id", partyID, "identifier", code, "error", err)
	return Outcome{
		PartyID:    partyID,
		Identifier: code,
		Status:     StatusFailed,
		Err:        err,
		Reason:     err.Error(),
	}
}

func (e *Engine) publish(ctx context.Context, batchID string, outcome Outcome) {
	if e.publisher == nil {
		return
	}
	event := audit.Event{
		BatchID:    batchID,
		PartyID:    outcome.PartyID,
		Identifier: outcome.Identifier,
		Status:     string(outcome.Status),
		Error:      outcome.Reason,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "outcome publish failed",
			"party_id", outcome.PartyID, "error", err)
	}
}

// mapRecord translates the registry payload onto party fields. Activity
// codes are left-padded to the authority's six-digit form.
func mapRecord(partyID string, rec registry.Record, codes CodeTable) party.Update {
	update := party.Update{
		PartyID:           partyID,
		Name:              rec.DisplayName(),
		Active:            rec.Active(),
		Condition:         codes.Condition(rec.TaxCodes, rec.Monotributo),
		StartActivityDate: rec.RegisteredAt,
	}
	if len(rec.Activities) >= 1 {
		update.PrimaryActivity = fmt.Sprintf("%06d", rec.Activities[0])
	}
	if len(rec.Activities) >= 2 {
		update.SecondaryActivity = fmt.Sprintf("%06d", rec.Activities[1])
	}
	if addr, ok := rec.FiscalAddress(); ok {
		fiscal := party.Address{
			Street:     addr.Street,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			Country:    refdata.CountryCode,
			Fiscal:     true,
			Active:     true,
		}
		if name, ok := refdata.Subdivision(addr.ProvinceCode); ok {
			fiscal.Subdivision = name
		}
		update.FiscalAddress = &fiscal
	}
	return update
}
