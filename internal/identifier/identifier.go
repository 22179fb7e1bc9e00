// Package identifier classifies and validates taxpayer identifiers.
// Classification is a pure function of the code plus two contextual hints;
// it never touches external state, so every rule is testable in isolation.
package identifier

import (
	"context"
	"strings"

	dErrors "padron/pkg/domain-errors"
)

// Kind is the recognized identifier family.
type Kind string

const (
	// KindCUIT is the 11-digit domestic business identifier with a
	// checksum digit.
	KindCUIT Kind = "ar_cuit"
	// KindDNI is the national personal identity number, shorter and
	// unchecked.
	KindDNI Kind = "ar_dni"
	// KindForeign is an identifier issued by another country, validated
	// only against the confirmed-numbers reference table.
	KindForeign Kind = "ar_foreign"
	// KindUnrecognized marks input no rule could place. Not an error at
	// classification time; validation always rejects it.
	KindUnrecognized Kind = "unrecognized"
)

// Document-type codes from the authority's table. Only the ones that steer
// classification are named; everything else falls through to the length
// rules.
const (
	DocTypeCUIT     = "80"
	DocTypeDNI      = "96"
	DocTypePassport = "94"
)

// TaxIdentifier is the classified, canonicalized form of a raw identifier.
// Constructed transiently; only Code and Kind are written back onto a
// party's identifier collection.
type TaxIdentifier struct {
	Raw         string
	Code        string
	Kind        Kind
	CountryCode string
}

// Classify turns a raw identifier plus hints into a typed identifier.
// Rules apply in order, first match wins:
//
//  1. A national-ID document type with fewer than 11 characters is a DNI.
//  2. A 2-letter country prefix is stripped; if the remainder passes the
//     CUIT checksum it is a CUIT, otherwise the document-type hint stands.
//  3. Anything shorter than 11 characters is a DNI.
//  4. Everything else is foreign; the country comes from the party's known
//     country. Without one, classification is deferred (empty country),
//     which is not an error but blocks foreign validation.
func Classify(code, docTypeHint, partyCountryHint string) TaxIdentifier {
	id := TaxIdentifier{Raw: code}
	code = strings.TrimSpace(code)

	switch {
	case docTypeHint == DocTypeDNI && len(code) < 11:
		id.Kind = KindDNI
		id.Code = code
	case hasCountryPrefix(code):
		rest := code[2:]
		if ValidCUIT(Canonicalize(KindCUIT, rest)) {
			id.Kind = KindCUIT
			id.Code = Canonicalize(KindCUIT, rest)
		} else {
			id.Kind = kindFromDocType(docTypeHint)
			id.Code = rest
		}
	case len(code) < 11:
		id.Kind = KindDNI
		id.Code = code
	default:
		id.Kind = KindForeign
		id.Code = code
		id.CountryCode = partyCountryHint
	}

	if id.Kind == KindCUIT {
		id.Code = Canonicalize(KindCUIT, id.Code)
	}
	return id
}

// Canonicalize strips separators and punctuation for CUIT codes; all other
// kinds pass through untouched.
func Canonicalize(kind Kind, raw string) string {
	if kind != KindCUIT {
		return raw
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ForeignRegistry is the reference table of previously confirmed
// (country, number) pairs. Foreign formats are not algorithmically
// verifiable from the string alone.
type ForeignRegistry interface {
	Confirmed(ctx context.Context, countryCode, code string) (bool, error)
}

// Validate checks the identifier against its family's rules. The foreign
// registry is consulted only for KindForeign; pass nil when no foreign
// identifiers are expected.
func Validate(ctx context.Context, id TaxIdentifier, foreign ForeignRegistry) error {
	switch id.Kind {
	case KindCUIT:
		if !ValidCUIT(id.Code) {
			return dErrors.Newf(dErrors.CodeInvalidIdentifier,
				"CUIT %q fails checksum", id.Code)
		}
		return nil
	case KindDNI:
		if !validDNI(id.Code) {
			return dErrors.Newf(dErrors.CodeInvalidIdentifier,
				"DNI %q is not a bounded numeric code", id.Code)
		}
		return nil
	case KindForeign:
		if id.CountryCode == "" {
			return dErrors.Newf(dErrors.CodeInvalidIdentifier,
				"foreign identifier %q has no country on file", id.Code)
		}
		if foreign == nil {
			return dErrors.New(dErrors.CodeInvalidIdentifier,
				"no foreign identifier registry configured")
		}
		ok, err := foreign.Confirmed(ctx, id.CountryCode, id.Code)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal,
				"foreign identifier lookup")
		}
		if !ok {
			return dErrors.Newf(dErrors.CodeInvalidIdentifier,
				"foreign identifier %q not confirmed for country %s", id.Code, id.CountryCode)
		}
		return nil
	default:
		return dErrors.Newf(dErrors.CodeInvalidIdentifier,
			"unrecognized identifier %q", id.Raw)
	}
}

var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidCUIT reports whether an 11-digit code passes the modulo-11 weighted
// checksum. The check digit is 11 minus the weighted sum modulo 11, with
// 11 mapping to 0; a result of 10 has no single-digit form, so such codes
// are never valid (the authority reissues them under a different prefix).
func ValidCUIT(code string) bool {
	if len(code) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		d := code[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * cuitWeights[i]
	}
	last := code[10]
	if last < '0' || last > '9' {
		return false
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return false
	}
	return int(last-'0') == check
}

func validDNI(code string) bool {
	if code == "" || len(code) > 10 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func hasCountryPrefix(code string) bool {
	return len(code) > 2 && isLetter(code[0]) && isLetter(code[1])
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func kindFromDocType(docType string) Kind {
	switch docType {
	case DocTypeCUIT:
		return KindCUIT
	case DocTypeDNI:
		return KindDNI
	default:
		return KindUnrecognized
	}
}
