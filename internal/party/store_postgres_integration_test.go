//go:build integration

package party_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"padron/internal/identifier"
	"padron/internal/party"
	"padron/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *party.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = party.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(s.ctx,
		`TRUNCATE party_addresses, party_identifiers, parties`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newParty(id string) *party.Party {
	return &party.Party{
		ID:   id,
		Name: "name-" + id,
		Identifiers: []party.Identifier{
			{Kind: identifier.KindCUIT, Code: "20123456786"},
		},
	}
}

func (s *PostgresStoreSuite) TestSaveAndFind() {
	s.Run("round trips a party with identifiers", func() {
		p := s.newParty("p1")
		p.DocType = "80"
		p.CountryCode = "AR"
		s.Require().NoError(s.store.Save(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, "p1")
		s.Require().NoError(err)
		s.Equal("name-p1", found.Name)
		s.Equal("80", found.DocType)
		s.Require().Len(found.Identifiers, 1)
		s.Equal(identifier.KindCUIT, found.Identifiers[0].Kind)
	})

	s.Run("saving again replaces the identifier set", func() {
		p := s.newParty("p2")
		s.Require().NoError(s.store.Save(s.ctx, p))

		p.Identifiers = []party.Identifier{
			{Kind: identifier.KindDNI, Code: "12345678"},
		}
		s.Require().NoError(s.store.Save(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, "p2")
		s.Require().NoError(err)
		s.Require().Len(found.Identifiers, 1)
		s.Equal(identifier.KindDNI, found.Identifiers[0].Kind)
	})

	s.Run("returns ErrNotFound for unknown IDs", func() {
		_, err := s.store.FindByID(s.ctx, "missing")
		s.Require().ErrorIs(err, party.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestListWithTaxID() {
	s.Require().NoError(s.store.Save(s.ctx, s.newParty("with")))
	s.Require().NoError(s.store.Save(s.ctx, &party.Party{ID: "without", Name: "no ids"}))

	parties, err := s.store.ListWithTaxID(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(parties, 1)
	s.Equal("with", parties[0].ID)
}

func (s *PostgresStoreSuite) TestApply() {
	s.Run("commits fields and swaps the fiscal address", func() {
		s.Require().NoError(s.store.Save(s.ctx, s.newParty("p1")))
		s.Require().NoError(s.store.AddAddress(s.ctx, "p1", party.Address{
			Street: "Old Street 1", Country: "AR", Fiscal: true, Active: true,
		}))

		start := time.Date(2010, 4, 1, 0, 0, 0, 0, time.UTC)
		err := s.store.Apply(s.ctx, party.Update{
			PartyID:           "p1",
			Name:              "ACME SA",
			Active:            true,
			Condition:         party.ConditionGeneralRegime,
			PrimaryActivity:   "620100",
			StartActivityDate: start,
			FiscalAddress: &party.Address{
				Street: "New Street 2", City: "Rosario",
				Subdivision: "Santa Fe", Country: "AR",
			},
		})
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, "p1")
		s.Require().NoError(err)
		s.Equal("ACME SA", found.Name)
		s.Equal(party.ConditionGeneralRegime, found.Condition)
		s.True(start.Equal(found.StartActivityDate))

		addrs, err := s.store.Addresses(s.ctx, "p1")
		s.Require().NoError(err)
		s.Require().Len(addrs, 2)

		var active []party.Address
		for _, a := range addrs {
			if a.Fiscal && a.Active {
				active = append(active, a)
			}
		}
		s.Require().Len(active, 1)
		s.Equal("New Street 2", active[0].Street)
	})

	s.Run("returns ErrNotFound for unknown parties", func() {
		err := s.store.Apply(s.ctx, party.Update{PartyID: "missing", Name: "x"})
		s.Require().ErrorIs(err, party.ErrNotFound)
	})
}
