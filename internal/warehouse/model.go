// Package warehouse defines the star-schema table model produced by the
// transform stage and consumed by the quality gate and the load stage.
//
// Surrogate identifiers are explicit: each dimension carries a KeyIndex that
// maps its natural key to the 0-based position assigned at build time. The
// fact builder and the load stage both read the same KeyIndex, so there is no
// implicit dependence on row order between stages. Persistence shifts all
// identifiers to 1-based together (see the storage backends).
package warehouse

// Table names as persisted in the target database.
const (
	TableRegions    = "dim_regions"
	TableCrimeTypes = "dim_crime_types"
	TablePeriods    = "dim_periods"
	TableFacts      = "fact_crimes"
)

// Region is one row of dim_regions. Code is the stable CBS region identifier
// (e.g. GM0363); Name is the display name.
type Region struct {
	Code string
	Name string
}

// CrimeType is one row of dim_crime_types. Name currently mirrors Code; it is
// a placeholder for future enrichment from the CBS SoortMisdrijf metadata.
type CrimeType struct {
	Code string
	Name string
}

// Period is one row of dim_periods. Code is the structured CBS period code
// (e.g. 2024JJ00); Year is the four-digit year extracted from it.
type Period struct {
	Code string
	Year int
}

// Fact is one row of fact_crimes. The three identifiers are 0-based positions
// into the corresponding dimensions. Measures are nullable: nil means the
// source value was absent or not numeric.
type Fact struct {
	RegionID    int
	CrimeTypeID int
	PeriodID    int

	RegisteredCrimes  *float64
	RegisteredPer1000 *float64
}

// KeyIndex maps a dimension's natural key to its assigned 0-based surrogate
// identifier.
type KeyIndex map[string]int

// TableSet is the full output of one transform run: the three dimensions with
// their identifier assignments, plus the fact table. It is handed off as a
// consistent snapshot; nothing mutates it after the transform stage returns.
type TableSet struct {
	Regions   []Region
	RegionIDs KeyIndex

	CrimeTypes   []CrimeType
	CrimeTypeIDs KeyIndex

	Periods   []Period
	PeriodIDs KeyIndex

	Facts []Fact
}
