// Package sqlite implements the warehouse on SQLite via database/sql and the
// modernc driver. It exists for local development runs: no bulk-load API, but
// batched multi-row INSERTs inside a transaction keep it fast enough for the
// volumes this dataset produces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cbsetl/internal/storage"
	"cbsetl/internal/warehouse"
)

// insertBatch caps the number of rows per multi-value INSERT so the statement
// stays under SQLite's bound-parameter limit.
const insertBatch = 500

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a SQLite path or URI, e.g. "crime.db" or "file:crime.db?cache=shared".
	DSN string
}

// Repository is a SQLite-backed storage.Warehouse.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database and fails fast on an invalid DSN.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	return &Repository{db: db}, nil
}

// Close closes the database handle.
func (r *Repository) Close() { r.db.Close() }

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS dim_regions (
		id INTEGER PRIMARY KEY,
		region_code TEXT NOT NULL UNIQUE,
		region_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_crime_types (
		id INTEGER PRIMARY KEY,
		crime_code TEXT NOT NULL UNIQUE,
		crime_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_periods (
		id INTEGER PRIMARY KEY,
		period_code TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_crimes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		region_id INTEGER NOT NULL REFERENCES dim_regions(id),
		crime_type_id INTEGER NOT NULL REFERENCES dim_crime_types(id),
		period_id INTEGER NOT NULL REFERENCES dim_periods(id),
		registered_crimes REAL,
		registered_crimes_per_1000 REAL,
		UNIQUE (region_id, crime_type_id, period_id)
	)`,
}

// EnsureSchema creates the four tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	log.Printf("sqlite: schema verified")
	return nil
}

// Load truncates the previous run and reinserts the table set in one
// transaction, fact deleted first and inserted last.
func (r *Repository) Load(ctx context.Context, ts *warehouse.TableSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		warehouse.TableFacts, warehouse.TableRegions, warehouse.TableCrimeTypes, warehouse.TablePeriods,
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: clear %s: %w", table, err)
		}
	}

	inserts := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{warehouse.TableRegions, storage.RegionColumns, storage.RegionRows(ts)},
		{warehouse.TableCrimeTypes, storage.CrimeTypeColumns, storage.CrimeTypeRows(ts)},
		{warehouse.TablePeriods, storage.PeriodColumns, storage.PeriodRows(ts)},
		{warehouse.TableFacts, storage.FactColumns, storage.FactRows(ts)},
	}
	for _, ins := range inserts {
		if err := insertRows(ctx, tx, ins.table, ins.columns, ins.rows); err != nil {
			return err
		}
		log.Printf("sqlite: loaded %d rows into %s", len(ins.rows), ins.table)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// insertRows issues batched multi-value INSERTs for the given rows.
func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	for start := 0; start < len(rows); start += insertBatch {
		end := start + insertBatch
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		stmt, args := buildInsert(table, columns, chunk)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", table, err)
		}
	}
	return nil
}

// buildInsert renders one multi-value INSERT statement plus its flattened
// argument list.
func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j := range columns {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('?')
		}
		b.WriteByte(')')
		args = append(args, row...)
	}
	return b.String(), args
}

// regionStatsSQL mirrors the Postgres read path with SQLite placeholders.
const regionStatsSQL = `
SELECT r.region_code,
       r.region_name,
       COALESCE(SUM(f.registered_crimes), 0) AS registered_crimes,
       AVG(f.registered_crimes_per_1000)     AS registered_crimes_per_1000
FROM fact_crimes f
JOIN dim_regions r     ON r.id = f.region_id
JOIN dim_crime_types c ON c.id = f.crime_type_id
JOIN dim_periods p     ON p.id = f.period_id
WHERE (? = 0 OR p.year = ?)
  AND (? = '' OR c.crime_code = ?)
GROUP BY r.region_code, r.region_name
ORDER BY r.region_code`

// RegionStats implements storage.StatsReader.
func (r *Repository) RegionStats(ctx context.Context, year int, crimeCode string) ([]storage.RegionStat, error) {
	rows, err := r.db.QueryContext(ctx, regionStatsSQL, year, year, crimeCode, crimeCode)
	if err != nil {
		return nil, fmt.Errorf("sqlite: region stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.RegionStat
	for rows.Next() {
		var s storage.RegionStat
		var rate sql.NullFloat64
		if err := rows.Scan(&s.RegionCode, &s.RegionName, &s.RegisteredCrimes, &rate); err != nil {
			return nil, fmt.Errorf("sqlite: region stats scan: %w", err)
		}
		if rate.Valid {
			v := rate.Float64
			s.AvgPer1000 = &v
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
