// Package quality is the gate between transform and load. It runs a fixed,
// ordered battery of independent checks over a warehouse.TableSet and fails
// fast: the first violated invariant aborts the run, so a bad snapshot can
// never reach the warehouse. There is no quarantine or partial-success path.
package quality

import (
	"fmt"
	"log"

	"cbsetl/internal/warehouse"
)

// CheckError describes one violated invariant: which table, which column (or
// pseudo-column for table-level checks), the condition, and how many rows
// violate it.
type CheckError struct {
	Table     string
	Column    string
	Condition string
	Count     int
}

func (e *CheckError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("quality: %s %s (%d violation(s))", e.Table, e.Condition, e.Count)
	}
	return fmt.Sprintf("quality: %s.%s %s (%d violation(s))", e.Table, e.Column, e.Condition, e.Count)
}

// CheckNotEmpty fails when a table produced zero rows.
func CheckNotEmpty(table string, rows int) error {
	if rows == 0 {
		return &CheckError{Table: table, Condition: "is empty", Count: 1}
	}
	log.Printf("quality: PASS %s not empty (%d rows)", table, rows)
	return nil
}

// CheckNoNulls fails when any key-column value is missing. The values
// callback yields the column's cells as "is this one null".
func CheckNoNulls(table, column string, rows int, isNull func(i int) bool) error {
	nulls := 0
	for i := 0; i < rows; i++ {
		if isNull(i) {
			nulls++
		}
	}
	if nulls > 0 {
		return &CheckError{Table: table, Column: column, Condition: "has null values", Count: nulls}
	}
	log.Printf("quality: PASS %s.%s has no nulls", table, column)
	return nil
}

// CheckNonNegative fails when any non-null value in the column is negative.
// Null cells are exempt.
func CheckNonNegative(table, column string, rows int, value func(i int) *float64) error {
	negative := 0
	for i := 0; i < rows; i++ {
		if v := value(i); v != nil && *v < 0 {
			negative++
		}
	}
	if negative > 0 {
		return &CheckError{Table: table, Column: column, Condition: "has negative values", Count: negative}
	}
	log.Printf("quality: PASS %s.%s has no negatives", table, column)
	return nil
}

// CheckUnique fails when the key column contains duplicates.
func CheckUnique(table, column string, rows int, key func(i int) string) error {
	seen := make(map[string]struct{}, rows)
	dups := 0
	for i := 0; i < rows; i++ {
		k := key(i)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	if dups > 0 {
		return &CheckError{Table: table, Column: column, Condition: "has duplicate keys", Count: dups}
	}
	log.Printf("quality: PASS %s unique on %s", table, column)
	return nil
}

// CheckReferentialIntegrity fails when any foreign key in the fact table
// falls outside the dimension's surrogate-identifier space [0, dimRows).
func CheckReferentialIntegrity(fkColumn, dimTable string, dimRows int, facts []warehouse.Fact, fk func(f warehouse.Fact) int) error {
	orphans := 0
	for _, f := range facts {
		if id := fk(f); id < 0 || id >= dimRows {
			orphans++
		}
	}
	if orphans > 0 {
		return &CheckError{
			Table:     warehouse.TableFacts,
			Column:    fkColumn,
			Condition: fmt.Sprintf("has orphan keys not present in %s", dimTable),
			Count:     orphans,
		}
	}
	log.Printf("quality: PASS %s.%s -> %s referential integrity", warehouse.TableFacts, fkColumn, dimTable)
	return nil
}

// RunAll executes the battery in fixed order and stops at the first failure.
// It returns the number of checks evaluated, including a failing one.
func RunAll(ts *warehouse.TableSet) (int, error) {
	ran := 0
	run := func(err error) error {
		ran++
		return err
	}

	// Not empty.
	counts := []struct {
		table string
		rows  int
	}{
		{warehouse.TableRegions, len(ts.Regions)},
		{warehouse.TableCrimeTypes, len(ts.CrimeTypes)},
		{warehouse.TablePeriods, len(ts.Periods)},
		{warehouse.TableFacts, len(ts.Facts)},
	}
	for _, c := range counts {
		if err := run(CheckNotEmpty(c.table, c.rows)); err != nil {
			return ran, err
		}
	}

	// No nulls in key columns. Codes and names are strings, so null means
	// empty; the year is null when it never parsed (builders drop those, this
	// is the backstop).
	if err := run(CheckNoNulls(warehouse.TableRegions, "region_code", len(ts.Regions),
		func(i int) bool { return ts.Regions[i].Code == "" })); err != nil {
		return ran, err
	}
	if err := run(CheckNoNulls(warehouse.TableRegions, "region_name", len(ts.Regions),
		func(i int) bool { return ts.Regions[i].Name == "" })); err != nil {
		return ran, err
	}
	if err := run(CheckNoNulls(warehouse.TableCrimeTypes, "crime_code", len(ts.CrimeTypes),
		func(i int) bool { return ts.CrimeTypes[i].Code == "" })); err != nil {
		return ran, err
	}
	if err := run(CheckNoNulls(warehouse.TablePeriods, "period_code", len(ts.Periods),
		func(i int) bool { return ts.Periods[i].Code == "" })); err != nil {
		return ran, err
	}
	if err := run(CheckNoNulls(warehouse.TablePeriods, "year", len(ts.Periods),
		func(i int) bool { return ts.Periods[i].Year == 0 })); err != nil {
		return ran, err
	}

	// Natural-key uniqueness per dimension.
	if err := run(CheckUnique(warehouse.TableRegions, "region_code", len(ts.Regions),
		func(i int) string { return ts.Regions[i].Code })); err != nil {
		return ran, err
	}
	if err := run(CheckUnique(warehouse.TableCrimeTypes, "crime_code", len(ts.CrimeTypes),
		func(i int) string { return ts.CrimeTypes[i].Code })); err != nil {
		return ran, err
	}
	if err := run(CheckUnique(warehouse.TablePeriods, "period_code", len(ts.Periods),
		func(i int) string { return ts.Periods[i].Code })); err != nil {
		return ran, err
	}

	// The fact grain: one row per (region, crime type, period).
	if err := run(CheckUnique(warehouse.TableFacts, "region_id,crime_type_id,period_id", len(ts.Facts),
		func(i int) string {
			f := ts.Facts[i]
			return fmt.Sprintf("%d\x1f%d\x1f%d", f.RegionID, f.CrimeTypeID, f.PeriodID)
		})); err != nil {
		return ran, err
	}

	// Non-negative counts; the per-1000 rate is deliberately exempt.
	if err := run(CheckNonNegative(warehouse.TableFacts, "registered_crimes", len(ts.Facts),
		func(i int) *float64 { return ts.Facts[i].RegisteredCrimes })); err != nil {
		return ran, err
	}

	// Referential integrity fact -> each dimension.
	if err := run(CheckReferentialIntegrity("region_id", warehouse.TableRegions, len(ts.Regions),
		ts.Facts, func(f warehouse.Fact) int { return f.RegionID })); err != nil {
		return ran, err
	}
	if err := run(CheckReferentialIntegrity("crime_type_id", warehouse.TableCrimeTypes, len(ts.CrimeTypes),
		ts.Facts, func(f warehouse.Fact) int { return f.CrimeTypeID })); err != nil {
		return ran, err
	}
	if err := run(CheckReferentialIntegrity("period_id", warehouse.TablePeriods, len(ts.Periods),
		ts.Facts, func(f warehouse.Fact) int { return f.PeriodID })); err != nil {
		return ran, err
	}

	log.Printf("quality: all %d checks passed", ran)
	return ran, nil
}
