package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"padron/internal/party"
	"padron/internal/platform/middleware"
	syncengine "padron/internal/sync"
	"padron/internal/ticket"
	dErrors "padron/pkg/domain-errors"
)

// Syncer is the slice of the sync engine the handlers use.
type Syncer interface {
	SyncOne(ctx context.Context, p *party.Party) syncengine.Outcome
	SyncStored(ctx context.Context) (*syncengine.BatchReport, error)
}

// CredentialVerifier checks that the configured credential can obtain a
// ticket without performing any registry work.
type CredentialVerifier interface {
	Verify(ctx context.Context, service string, cred ticket.Credential) error
}

// Handler delegates to the engine and the party store.
type Handler struct {
	engine   Syncer
	parties  party.Store
	verifier CredentialVerifier
	cred     ticket.Credential
	service  string
	logger   *slog.Logger
}

func NewHandler(engine Syncer, parties party.Store, verifier CredentialVerifier,
	cred ticket.Credential, service string, logger *slog.Logger) *Handler {

	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		parties:  parties,
		verifier: verifier,
		cred:     cred,
		service:  service,
		logger:   logger,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSyncAll runs a full census import over every stored party that
// carries a tax identifier and returns the batch report.
func (h *Handler) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.engine.SyncStored(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, skipped, failed := report.Counts()
	h.logger.InfoContext(ctx, "census import requested over http",
		"operator", middleware.GetOperator(ctx),
		"batch_id", report.ID,
		"updated", updated, "skipped", skipped, "failed", failed)
	writeJSON(w, http.StatusOK, report)
}

// handleSyncParty refreshes one party by ID.
func (h *Handler) handleSyncParty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	p, err := h.parties.FindByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome := h.engine.SyncOne(ctx, p)
	status := http.StatusOK
	if outcome.Status == syncengine.StatusFailed {
		status = statusFor(outcome.Err)
	}
	writeJSON(w, status, outcome)
}

// handleVerifyCredential confirms the configured certificate and key can
// obtain an access ticket for the registry service.
func (h *Handler) handleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.verifier.Verify(ctx, h.service, h.cred); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "credential ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError centralizes domain error translation so every handler emits
// the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	var dErr *dErrors.Error
	message := "internal error"
	if errors.As(err, &dErr) {
		message = dErr.Message
	}
	writeJSON(w, statusFor(err), map[string]string{
		"error":   string(code),
		"message": message,
	})
}

func statusFor(err error) int {
	switch dErrors.GetCode(err) {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidIdentifier:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeAuthenticationFailed:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound, dErrors.CodeRegistryNotFound:
		return http.StatusNotFound
	case dErrors.CodeConfigurationMissing:
		return http.StatusServiceUnavailable
	case dErrors.CodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
