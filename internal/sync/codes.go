package sync

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"padron/internal/party"
)

// CodeTable maps the registry's tax-regime codes onto local tax
// conditions. The remote's code table has shifted over the years, so the
// mapping is external configuration rather than hardcoded; deployments
// absorb future changes with a file edit instead of a release.
type CodeTable struct {
	Exempt        []int `yaml:"exempt"`
	NotApplicable []int `yaml:"not_applicable"`
	GeneralRegime []int `yaml:"general_regime"`
}

// DefaultCodeTable reflects the authority's current published table.
func DefaultCodeTable() CodeTable {
	return CodeTable{
		Exempt:        []int{32},
		NotApplicable: []int{34},
		GeneralRegime: []int{30},
	}
}

// LoadCodeTable reads a yaml mapping file.
func LoadCodeTable(path string) (CodeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CodeTable{}, fmt.Errorf("read tax code table: %w", err)
	}
	var table CodeTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return CodeTable{}, fmt.Errorf("parse tax code table: %w", err)
	}
	return table, nil
}

// Condition derives the tax condition from the registry's code set and the
// small-taxpayer flag. Fixed precedence: exempt, then not-applicable, then
// the small-taxpayer regime, then the general regime, defaulting to final
// consumer.
func (t CodeTable) Condition(taxCodes []int, monotributo bool) party.TaxCondition {
	switch {
	case containsAny(taxCodes, t.Exempt):
		return party.ConditionExempt
	case containsAny(taxCodes, t.NotApplicable):
		return party.ConditionNotApplicable
	case monotributo:
		return party.ConditionSmallTaxpayer
	case containsAny(taxCodes, t.GeneralRegime):
		return party.ConditionGeneralRegime
	default:
		return party.ConditionFinalConsumer
	}
}

func containsAny(haystack, needles []int) bool {
	for _, n := range needles {
		for _, h := range haystack {
			if h == n {
				return true
			}
		}
	}
	return false
}
