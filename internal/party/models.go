// Package party models the business records the sync engine reads and
// updates. Persistence details stay behind the Store interface.
package party

import (
	"time"

	"padron/internal/identifier"
)

// TaxCondition is the party's standing before the tax authority. Values
// match the business records' historical vocabulary.
type TaxCondition string

const (
	ConditionExempt        TaxCondition = "exento"
	ConditionNotApplicable TaxCondition = "no_alcanzado"
	ConditionSmallTaxpayer TaxCondition = "monotributo"
	ConditionGeneralRegime TaxCondition = "responsable_inscripto"
	ConditionFinalConsumer TaxCondition = "consumidor_final"
)

// Identifier is one entry in a party's identifier collection.
type Identifier struct {
	Kind identifier.Kind
	Code string
	// CountryCode is set only for foreign identifiers.
	CountryCode string
}

// Address is one entry in a party's address collection. Fiscal addresses
// are never deleted, only deactivated, preserving history.
type Address struct {
	ID          string
	Street      string
	City        string
	PostalCode  string
	Subdivision string
	Country     string
	Fiscal      bool
	Active      bool
}

// Party is the business record being synchronized.
type Party struct {
	ID     string
	Name   string
	Active bool

	// DocType is the authority's document-type code for this party,
	// used as a classification hint.
	DocType string
	// CountryCode is the party's known country, used to resolve foreign
	// identifiers. Empty when not on file.
	CountryCode string

	Condition         TaxCondition
	PrimaryActivity   string
	SecondaryActivity string
	StartActivityDate time.Time

	Identifiers []Identifier
}

// TaxID returns the party's usable domestic tax identifier, preferring the
// business identifier over the personal one.
func (p *Party) TaxID() (Identifier, bool) {
	for _, id := range p.Identifiers {
		if id.Kind == identifier.KindCUIT {
			return id, true
		}
	}
	for _, id := range p.Identifiers {
		if id.Kind == identifier.KindDNI {
			return id, true
		}
	}
	// Raw entries imported before classification still count; the sync
	// engine classifies them on the way through.
	for _, id := range p.Identifiers {
		if id.Kind == "" {
			return id, true
		}
	}
	return Identifier{}, false
}

// Update is the full set of mapped registry fields for one party. Stores
// apply it atomically: either everything commits or nothing does, so a
// party is never left half-updated.
type Update struct {
	PartyID string

	Name              string
	Active            bool
	Condition         TaxCondition
	PrimaryActivity   string
	SecondaryActivity string
	StartActivityDate time.Time

	// FiscalAddress, when set, replaces the active fiscal address: the
	// previous one is deactivated, not deleted, before this one is
	// written.
	FiscalAddress *Address
}
