// Package postgres implements the warehouse on Postgres using pgx v5.
// Dimensions and facts are bulk-inserted with COPY inside one transaction
// that first truncates the previous run, making each pipeline run idempotent
// with respect to warehouse state.
package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cbsetl/internal/storage"
	"cbsetl/internal/warehouse"
)

// Config holds Postgres repository configuration.
type Config struct {
	// DSN is the pgxpool connection string, e.g. postgres://user:pw@host/db.
	DSN string
}

// Repository is a Postgres-backed storage.Warehouse.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects a pool and returns the repository. Close releases
// the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() { r.pool.Close() }

// ddl creates the star schema. Unique natural keys and the fact grain are
// enforced in the database as a backstop behind the quality gate.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS dim_regions (
		id integer PRIMARY KEY,
		region_code varchar(10) NOT NULL UNIQUE,
		region_name varchar(200) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_crime_types (
		id integer PRIMARY KEY,
		crime_code varchar(50) NOT NULL UNIQUE,
		crime_name varchar(300) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_periods (
		id integer PRIMARY KEY,
		period_code varchar(20) NOT NULL UNIQUE,
		year integer NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_crimes (
		id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		region_id integer NOT NULL REFERENCES dim_regions(id),
		crime_type_id integer NOT NULL REFERENCES dim_crime_types(id),
		period_id integer NOT NULL REFERENCES dim_periods(id),
		registered_crimes double precision,
		registered_crimes_per_1000 double precision,
		CONSTRAINT uq_crime_fact UNIQUE (region_id, crime_type_id, period_id)
	)`,
}

// EnsureSchema creates the four tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	log.Printf("postgres: schema verified")
	return nil
}

// Load truncates the previous run and bulk-inserts the table set, dimensions
// first so the fact foreign keys resolve. Everything runs in one transaction:
// the warehouse either shows the new run completely or the old one untouched.
func (r *Repository) Load(ctx context.Context, ts *warehouse.TableSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Fact first, then dimensions.
	if _, err := tx.Exec(ctx,
		"TRUNCATE TABLE fact_crimes, dim_regions, dim_crime_types, dim_periods RESTART IDENTITY CASCADE"); err != nil {
		return fmt.Errorf("postgres: truncate: %w", err)
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
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{ins.table},
			ins.columns,
			pgx.CopyFromRows(ins.rows),
		)
		if err != nil {
			return fmt.Errorf("postgres: copy %s: %w", ins.table, err)
		}
		if int(n) != len(ins.rows) {
			return fmt.Errorf("postgres: copy %s: inserted %d of %d rows", ins.table, n, len(ins.rows))
		}
		log.Printf("postgres: loaded %d rows into %s", n, ins.table)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}
