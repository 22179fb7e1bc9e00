package identifier

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresForeignRegistry persists confirmed foreign identifiers in
// PostgreSQL, shared with the party store's database.
type PostgresForeignRegistry struct {
	db *sql.DB
}

func NewPostgresForeignRegistry(db *sql.DB) *PostgresForeignRegistry {
	return &PostgresForeignRegistry{db: db}
}

func (r *PostgresForeignRegistry) Add(ctx context.Context, countryCode, code string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO foreign_vat_numbers (country_code, vat_number)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, countryCode, code)
	if err != nil {
		return fmt.Errorf("add foreign identifier: %w", err)
	}
	return nil
}

func (r *PostgresForeignRegistry) Confirmed(ctx context.Context, countryCode, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM foreign_vat_numbers
			WHERE country_code = $1 AND vat_number = $2
		)`, countryCode, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check foreign identifier: %w", err)
	}
	return exists, nil
}

// RemapCountry rewrites the country code on confirmed numbers. Used only by
// the one-shot country remap tool, never at runtime.
func (r *PostgresForeignRegistry) RemapCountry(ctx context.Context, from, to string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE foreign_vat_numbers SET country_code = $2
		WHERE country_code = $1`, from, to)
	if err != nil {
		return 0, fmt.Errorf("remap country %s -> %s: %w", from, to, err)
	}
	return res.RowsAffected()
}
