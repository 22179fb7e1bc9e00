package party

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "embed"

	"github.com/google/uuid"

	"padron/internal/identifier"
)

//go:embed schema.sql
var schema string

// PostgresStore persists parties, identifiers and addresses in PostgreSQL.
// Apply runs in a transaction so a party is never observed half-updated.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema. Idempotent; run at startup or from the CLI.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply party schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, p *Party) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save party: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO parties (id, name, active, doc_type, country_code,
			tax_condition, primary_activity, secondary_activity, start_activity_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			doc_type = EXCLUDED.doc_type,
			country_code = EXCLUDED.country_code,
			tax_condition = EXCLUDED.tax_condition,
			primary_activity = EXCLUDED.primary_activity,
			secondary_activity = EXCLUDED.secondary_activity,
			start_activity_date = EXCLUDED.start_activity_date`,
		p.ID, p.Name, p.Active, p.DocType, p.CountryCode,
		string(p.Condition), p.PrimaryActivity, p.SecondaryActivity,
		nullDate(p.StartActivityDate))
	if err != nil {
		return fmt.Errorf("upsert party: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM party_identifiers WHERE party_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear party identifiers: %w", err)
	}
	for _, id := range p.Identifiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO party_identifiers (party_id, kind, code, country_code)
			VALUES ($1, $2, $3, $4)`,
			p.ID, string(id.Kind), id.Code, id.CountryCode); err != nil {
			return fmt.Errorf("insert party identifier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save party: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Party, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, active, doc_type, country_code, tax_condition,
			primary_activity, secondary_activity, start_activity_date
		FROM parties WHERE id = $1`, id)
	p, err := scanParty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find party: %w", err)
	}
	if err := s.loadIdentifiers(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListWithTaxID(ctx context.Context) ([]*Party, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.name, p.active, p.doc_type, p.country_code,
			p.tax_condition, p.primary_activity, p.secondary_activity,
			p.start_activity_date
		FROM parties p
		JOIN party_identifiers i ON i.party_id = p.id
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	var parties []*Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	for _, p := range parties {
		if err := s.loadIdentifiers(ctx, p); err != nil {
			return nil, err
		}
	}
	return parties, nil
}

func (s *PostgresStore) Apply(ctx context.Context, update Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin party update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE parties SET
			name = $2,
			active = $3,
			tax_condition = $4,
			primary_activity = $5,
			secondary_activity = $6,
			start_activity_date = $7
		WHERE id = $1`,
		update.PartyID, update.Name, update.Active, string(update.Condition),
		update.PrimaryActivity, update.SecondaryActivity,
		nullDate(update.StartActivityDate))
	if err != nil {
		return fmt.Errorf("update party fields: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if update.FiscalAddress != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE party_addresses SET active = FALSE
			WHERE party_id = $1 AND fiscal AND active`,
			update.PartyID); err != nil {
			return fmt.Errorf("deactivate fiscal address: %w", err)
		}
		addr := update.FiscalAddress
		addrID := addr.ID
		if addrID == "" {
			addrID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO party_addresses
				(id, party_id, street, city, postal_code, subdivision, country, fiscal, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, TRUE)`,
			addrID, update.PartyID, addr.Street, addr.City,
			addr.PostalCode, addr.Subdivision, addr.Country); err != nil {
			return fmt.Errorf("insert fiscal address: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit party update: %w", err)
	}
	return nil
}

func (s *PostgresStore) Addresses(ctx context.Context, partyID string) ([]Address, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, street, city, postal_code, subdivision, country, fiscal, active
		FROM party_addresses WHERE party_id = $1 ORDER BY id`, partyID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addrs []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.Street, &a.City, &a.PostalCode,
			&a.Subdivision, &a.Country, &a.Fiscal, &a.Active); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addrs = append(addrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addrs, nil
}

// AddAddress inserts an address entry as-is. Used for seeding and by the
// application layer when operators record addresses manually.
func (s *PostgresStore) AddAddress(ctx context.Context, partyID string, addr Address) error {
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO party_addresses
			(id, party_id, street, city, postal_code, subdivision, country, fiscal, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		addr.ID, partyID, addr.Street, addr.City, addr.PostalCode,
		addr.Subdivision, addr.Country, addr.Fiscal, addr.Active)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadIdentifiers(ctx context.Context, p *Party) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, code, country_code
		FROM party_identifiers WHERE party_id = $1 ORDER BY kind, code`, p.ID)
	if err != nil {
		return fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id Identifier
		var kind string
		if err := rows.Scan(&kind, &id.Code, &id.CountryCode); err != nil {
			return fmt.Errorf("scan identifier: %w", err)
		}
		id.Kind = identifier.Kind(kind)
		p.Identifiers = append(p.Identifiers, id)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (*Party, error) {
	var p Party
	var condition string
	var startDate sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Active, &p.DocType, &p.CountryCode,
		&condition, &p.PrimaryActivity, &p.SecondaryActivity, &startDate); err != nil {
		return nil, err
	}
	p.Condition = TaxCondition(condition)
	if startDate.Valid {
		p.StartActivityDate = startDate.Time
	}
	return &p, nil
}

func nullDate(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
