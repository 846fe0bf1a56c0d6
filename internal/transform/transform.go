// Package transform reshapes the raw CBS crime snapshot into the star-schema
// table set: string cleanup, column resolution, dimension builds, then the
// fact join. The stage is synchronous and deterministic: the same snapshot
// always yields identical tables, row order and surrogate identifiers
// included.
package transform

import (
	"fmt"
	"log"

	"cbsetl/internal/schema"
	"cbsetl/internal/warehouse"
	"cbsetl/pkg/records"
)

// Columns holds the resolved source column name for each semantic role.
type Columns struct {
	RegionCode string
	RegionName string // empty when no name column exists; names fall back to codes
	CrimeType  string
	Period     string
	Registered string
	Per1000    string
}

// ResolveColumns maps every required role onto a concrete column of the
// snapshot. The region name role is optional; every other failure is fatal
// and surfaces the *schema.ResolutionError unchanged.
func ResolveColumns(cols []string) (Columns, error) {
	var c Columns
	var err error

	if c.RegionCode, err = schema.Resolve(schema.RoleRegionCode, cols); err != nil {
		return Columns{}, err
	}
	if c.CrimeType, err = schema.Resolve(schema.RoleCrimeType, cols); err != nil {
		return Columns{}, err
	}
	if c.Period, err = schema.Resolve(schema.RolePeriod, cols); err != nil {
		return Columns{}, err
	}
	if c.Registered, err = schema.Resolve(schema.RoleRegistered, cols); err != nil {
		return Columns{}, err
	}
	if c.Per1000, err = schema.Resolve(schema.RolePer1000, cols); err != nil {
		return Columns{}, err
	}

	// Name is enrichment only; a snapshot without it still transforms.
	if name, err := schema.Resolve(schema.RoleRegionName, cols); err == nil && name != c.RegionCode {
		c.RegionName = name
	}
	return c, nil
}

// Run executes the full transform: clean, resolve, build dimensions, build
// facts. Join gaps and unparseable period codes are absorbed into DropStats
// and the returned table set; only schema resolution can fail.
func Run(snap *records.Snapshot) (*warehouse.TableSet, DropStats, error) {
	CleanStrings(snap)

	cols, err := ResolveColumns(snap.Columns)
	if err != nil {
		return nil, DropStats{}, fmt.Errorf("transform: %w", err)
	}

	regions, regionIDs := BuildRegions(snap, cols.RegionCode, cols.RegionName)
	types, typeIDs := BuildCrimeTypes(snap, cols.CrimeType)
	periods, periodIDs, badPeriods := BuildPeriods(snap, cols.Period)
	if badPeriods > 0 {
		log.Printf("transform: dim_periods dropped=%d codes with unparseable year", badPeriods)
	}

	facts, drops := BuildFacts(snap, cols, regionIDs, typeIDs, periodIDs)
	if n := drops.Total(); n > 0 {
		log.Printf("transform: fact_crimes dropped=%d rows on join gaps (region=%d crime_type=%d period=%d)",
			n, drops.Region, drops.CrimeType, drops.Period)
	}
	log.Printf("transform: dim_regions=%d dim_crime_types=%d dim_periods=%d fact_crimes=%d",
		len(regions), len(types), len(periods), len(facts))

	return &warehouse.TableSet{
		Regions:      regions,
		RegionIDs:    regionIDs,
		CrimeTypes:   types,
		CrimeTypeIDs: typeIDs,
		Periods:      periods,
		PeriodIDs:    periodIDs,
		Facts:        facts,
	}, drops, nil
}
