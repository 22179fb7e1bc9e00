// Package ticket obtains and caches short-lived access tickets for the tax
// authority's webservices. A ticket proves identity to a specific service
// and is reused until its validity window runs out, so the expensive
// sign-and-submit login only happens on cache misses.
package ticket

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Credential bundles the certificate and private key issued by the
// authority for one caller. Material is opaque to this package; only the
// external signer interprets it.
type Credential struct {
	Certificate []byte
	PrivateKey  []byte
}

// Empty reports whether any part of the credential is missing. Empty
// credentials fail fast without a network attempt.
func (c Credential) Empty() bool {
	return len(c.Certificate) == 0 || len(c.PrivateKey) == 0
}

// Fingerprint identifies a (service, credential) pair. Used only as a cache
// key, never reversed.
type Fingerprint string

// ComputeFingerprint derives a stable digest from the service name and the
// credential material. Identical inputs always yield the identical value.
func ComputeFingerprint(service string, cred Credential) Fingerprint {
	h := sha256.New()
	h.Write([]byte(service))
	h.Write(cred.Certificate)
	h.Write(cred.PrivateKey)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Ticket is the token+signature pair returned by the authentication
// service. Both values are opaque strings passed through to other services.
type Ticket struct {
	Token string `json:"token"`
	Sign  string `json:"sign"`
}

// CachedTicket is the stored form of a ticket, keyed by fingerprint.
// Entries are overwritten in place on refresh; stale entries are simply
// superseded, never deleted.
type CachedTicket struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Token       string      `json:"token"`
	Sign        string      `json:"sign"`
	IssuedAt    time.Time   `json:"issued_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Expired reports whether the ticket must be refreshed. A ticket expiring
// exactly now counts as expired.
func (t CachedTicket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Usable reports whether the cached entry can be returned without a remote
// call: payload present and validity window still open.
func (t CachedTicket) Usable(now time.Time) bool {
	return t.Token != "" && t.Sign != "" && !t.Expired(now)
}

// Value returns the ticket proper, stripped of cache bookkeeping.
func (t CachedTicket) Value() Ticket {
	return Ticket{Token: t.Token, Sign: t.Sign}
}
