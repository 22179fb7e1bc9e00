// Package registry defines the contract with the taxpayer-registry
// webservice. The exact SOAP wire format stays behind the Client interface;
// adapters live elsewhere and can be swapped without touching the engine.
package registry

import (
	"context"
	"time"

	"padron/internal/ticket"
	dErrors "padron/pkg/domain-errors"
)

// Service is the registry service name used when requesting tickets.
const Service = "ws_sr_padron_a4"

// ErrNotFound reports that the registry holds no record for the
// identifier. A normal, expected outcome.
var ErrNotFound = dErrors.New(dErrors.CodeRegistryNotFound, "no registry record for identifier")

// PersonType distinguishes natural persons from legal entities; the two
// carry their names differently.
type PersonType string

const (
	PersonNatural PersonType = "FISICA"
	PersonLegal   PersonType = "JURIDICA"
)

// Address is one registered domicile. Only the fiscal entry is applied to
// parties.
type Address struct {
	Kind         string
	Street       string
	City         string
	PostalCode   string
	ProvinceCode int
}

// Fiscal address kind marker as reported by the registry.
const AddressKindFiscal = "FISCAL"

// Record is the ephemeral registry payload for one taxpayer. It is never
// stored verbatim; the sync engine maps it field by field onto the party.
type Record struct {
	PersonType PersonType
	FirstName  string
	LastName   string
	LegalName  string

	// Status is "ACTIVO" for active taxpayers.
	Status string

	// TaxCodes lists the regime codes the taxpayer is registered under.
	// Their meaning is external configuration, not hardcoded here.
	TaxCodes    []int
	Monotributo bool

	// Activities in registry order; the first is primary.
	Activities []int

	RegisteredAt time.Time
	Addresses    []Address
}

// Active reports whether the registry marks the taxpayer active.
func (r Record) Active() bool { return r.Status == "ACTIVO" }

// DisplayName renders the name the way the business records keep it:
// "LASTNAME, FIRSTNAME" for natural persons, the legal name otherwise.
func (r Record) DisplayName() string {
	if r.PersonType == PersonNatural {
		return r.LastName + ", " + r.FirstName
	}
	return r.LegalName
}

// FiscalAddress returns the fiscal domicile, if the record carries one.
func (r Record) FiscalAddress() (Address, bool) {
	for _, addr := range r.Addresses {
		if addr.Kind == AddressKindFiscal {
			return addr, true
		}
	}
	return Address{}, false
}

// Client performs the remote lookup. Implementations must return
// ErrNotFound (possibly wrapped) when the registry has no record, and keep
// remote-reported messages verbatim in other errors.
type Client interface {
	Lookup(ctx context.Context, code string, t ticket.Ticket, endpointURL string) (Record, error)
}
