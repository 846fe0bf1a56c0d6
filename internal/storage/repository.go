// Package storage defines the persistence contracts for the crime warehouse
// and the row-shaping helpers shared by its backends.
//
// Persistence converts the transform stage's 0-based surrogate identifiers to
// 1-based database keys. The shift is applied here, in one place, for all
// four tables together, so fact foreign keys and dimension primary keys can
// never drift apart.
package storage

import (
	"context"

	"cbsetl/internal/warehouse"
)

// Warehouse persists one transformed table set. Load must be idempotent per
// run: implementations truncate and reinsert (fact before dimensions) inside
// a transaction.
type Warehouse interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context, ts *warehouse.TableSet) error
	Close()
}

// RegionStat is one row of the denormalized read path: crime totals
// aggregated per region. AvgPer1000 is nil when every underlying rate was
// suppressed upstream.
type RegionStat struct {
	RegionCode       string   `json:"region_code"`
	RegionName       string   `json:"region_name"`
	RegisteredCrimes float64  `json:"registered_crimes"`
	AvgPer1000       *float64 `json:"registered_crimes_per_1000"`
}

// StatsReader serves the dashboard read path. year==0 and crimeCode==""
// mean "all".
type StatsReader interface {
	RegionStats(ctx context.Context, year int, crimeCode string) ([]RegionStat, error)
}

// Column lists for the four tables, in insert order.
var (
	RegionColumns    = []string{"id", "region_code", "region_name"}
	CrimeTypeColumns = []string{"id", "crime_code", "crime_name"}
	PeriodColumns    = []string{"id", "period_code", "year"}
	FactColumns      = []string{"region_id", "crime_type_id", "period_id", "registered_crimes", "registered_crimes_per_1000"}
)

// RegionRows shapes dim_regions for bulk insert, ids shifted to 1-based.
func RegionRows(ts *warehouse.TableSet) [][]any {
	rows := make([][]any, len(ts.Regions))
	for i, r := range ts.Regions {
		rows[i] = []any{i + 1, r.Code, r.Name}
	}
	return rows
}

// CrimeTypeRows shapes dim_crime_types for bulk insert.
func CrimeTypeRows(ts *warehouse.TableSet) [][]any {
	rows := make([][]any, len(ts.CrimeTypes))
	for i, c := range ts.CrimeTypes {
		rows[i] = []any{i + 1, c.Code, c.Name}
	}
	return rows
}

// PeriodRows shapes dim_periods for bulk insert.
func PeriodRows(ts *warehouse.TableSet) [][]any {
	rows := make([][]any, len(ts.Periods))
	for i, p := range ts.Periods {
		rows[i] = []any{i + 1, p.Code, p.Year}
	}
	return rows
}

// FactRows shapes fact_crimes for bulk insert, applying the same 1-based
// shift to every foreign key. Nil measures become SQL NULLs.
func FactRows(ts *warehouse.TableSet) [][]any {
	rows := make([][]any, len(ts.Facts))
	for i, f := range ts.Facts {
		rows[i] = []any{
			f.RegionID + 1,
			f.CrimeTypeID + 1,
			f.PeriodID + 1,
			nullable(f.RegisteredCrimes),
			nullable(f.RegisteredPer1000),
		}
	}
	return rows
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
