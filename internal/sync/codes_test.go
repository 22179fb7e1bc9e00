package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"padron/internal/party"
)

type CodeTableSuite struct {
	suite.Suite
	table CodeTable
}

func (s *CodeTableSuite) SetupTest() {
	s.table = DefaultCodeTable()
}

func TestCodeTableSuite(t *testing.T) {
	suite.Run(t, new(CodeTableSuite))
}

func (s *CodeTableSuite) TestConditionPrecedence() {
	s.Run("exempt wins over everything", func() {
		got := s.table.Condition([]int{30, 32, 34}, true)
		s.Equal(party.ConditionExempt, got)
	})

	s.Run("not applicable beats the regimes", func() {
		got := s.table.Condition([]int{30, 34}, true)
		s.Equal(party.ConditionNotApplicable, got)
	})

	s.Run("small taxpayer beats the general regime", func() {
		got := s.table.Condition([]int{30}, true)
		s.Equal(party.ConditionSmallTaxpayer, got)
	})

	s.Run("general regime from its code", func() {
		got := s.table.Condition([]int{30}, false)
		s.Equal(party.ConditionGeneralRegime, got)
	})

	s.Run("defaults to final consumer", func() {
		s.Equal(party.ConditionFinalConsumer, s.table.Condition(nil, false))
		s.Equal(party.ConditionFinalConsumer, s.table.Condition([]int{99}, false))
	})
}

func (s *CodeTableSuite) TestLoadCodeTable() {
	s.Run("reads a yaml override", func() {
		path := filepath.Join(s.T().TempDir(), "codes.yaml")
		content := "exempt: [32, 33]\nnot_applicable: [34]\ngeneral_regime: [30, 31]\n"
		s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

		table, err := LoadCodeTable(path)
		s.Require().NoError(err)
		s.Equal([]int{32, 33}, table.Exempt)
		s.Equal(party.ConditionExempt, table.Condition([]int{33}, false))
	})

	s.Run("fails on a missing file", func() {
		_, err := LoadCodeTable(filepath.Join(s.T().TempDir(), "nope.yaml"))
		s.Require().Error(err)
	})
}
