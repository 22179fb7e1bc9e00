package ticket

import (
	"context"

	dErrors "padron/pkg/domain-errors"
)

// ErrNotFound keeps cache-miss reporting consistent across file, memory and
// Redis implementations. Corrupt or truncated payloads surface as this same
// error so the authenticator always has a plain "miss, refresh" path.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "ticket not found")

// Store persists cached ticket material keyed by fingerprint. Pure storage:
// no TTL policy, no crypto, no network knowledge. Distinct fingerprints are
// independent cache slots, so no cross-fingerprint locking is required.
// Implementations must make Put atomic per fingerprint; a concurrent Get
// never observes a partial write.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (CachedTicket, error)
	Put(ctx context.Context, fp Fingerprint, t CachedTicket) error
}
