package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource streams catalog records out of a relational products table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects a pgx pool to the given DSN.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Fetch runs the given query and converts every row into a Record keyed by
// the result column names. All values are stringified.
func (s *PostgresSource) Fetch(ctx context.Context, query string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}

	var records []Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read product row: %w", err)
		}
		fields := make(map[string]string, len(cols))
		for i, col := range cols {
			fields[col] = valueToString(values[i])
		}
		records = append(records, Record{Kind: RelationalRow, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return records, nil
}

// Close releases the underlying pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

func valueToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
