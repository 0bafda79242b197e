package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmaretto/papertrade/internal/model"
)

// PostgresSource loads reference records from the reference_records table.
type PostgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource creates a Source backed by the given pool.
func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

// LoadReferenceRecords fetches every reference record.
func (s *PostgresSource) LoadReferenceRecords(ctx context.Context) ([]model.ReferenceRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT symbol, name, sector, industry, exchange, country, currency, description, website, logo
		FROM reference_records
	`)
	if err != nil {
		return nil, fmt.Errorf("query reference_records: %w", err)
	}
	defer rows.Close()

	var records []model.ReferenceRecord
	for rows.Next() {
		var r model.ReferenceRecord
		if err := rows.Scan(
			&r.Symbol, &r.Name, &r.Sector, &r.Industry, &r.Exchange,
			&r.Country, &r.Currency, &r.Description, &r.Website, &r.Logo,
		); err != nil {
			return nil, fmt.Errorf("scan reference record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read reference_records: %w", err)
	}

	return records, nil
}
