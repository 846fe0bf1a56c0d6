package transform

import (
	"cbsetl/internal/warehouse"
	"cbsetl/pkg/records"
)

// BuildRegions derives dim_regions from the cleaned snapshot: one row per
// distinct region code, in first-seen order, keeping the first-seen name.
// When nameCol is empty (no name column resolved), the name falls back to the
// code itself. The returned KeyIndex records the 0-based identifier each code
// was assigned.
func BuildRegions(snap *records.Snapshot, codeCol, nameCol string) ([]warehouse.Region, warehouse.KeyIndex) {
	regions := make([]warehouse.Region, 0, 64)
	ids := make(warehouse.KeyIndex, 64)

	for _, r := range snap.Rows {
		code, ok := r.String(codeCol)
		if !ok || code == "" {
			continue
		}
		if _, seen := ids[code]; seen {
			continue
		}
		name := code
		if nameCol != "" {
			if n, ok := r.String(nameCol); ok && n != "" {
				name = n
			}
		}
		ids[code] = len(regions)
		regions = append(regions, warehouse.Region{Code: code, Name: name})
	}
	return regions, ids
}

// BuildCrimeTypes derives dim_crime_types: one row per distinct crime code in
// first-seen order. The name mirrors the code until enrichment exists.
func BuildCrimeTypes(snap *records.Snapshot, codeCol string) ([]warehouse.CrimeType, warehouse.KeyIndex) {
	types := make([]warehouse.CrimeType, 0, 16)
	ids := make(warehouse.KeyIndex, 16)

	for _, r := range snap.Rows {
		code, ok := r.String(codeCol)
		if !ok || code == "" {
			continue
		}
		if _, seen := ids[code]; seen {
			continue
		}
		ids[code] = len(types)
		types = append(types, warehouse.CrimeType{Code: code, Name: code})
	}
	return types, ids
}

// BuildPeriods derives dim_periods: one row per distinct period code in
// first-seen order, with the year parsed from the code. Codes whose year does
// not parse are excluded from the dimension; the number of distinct codes
// dropped that way is returned so the caller can log the reduction. The drop
// is deliberate and non-fatal: such rows also fail the fact join later.
func BuildPeriods(snap *records.Snapshot, codeCol string) ([]warehouse.Period, warehouse.KeyIndex, int) {
	periods := make([]warehouse.Period, 0, 16)
	ids := make(warehouse.KeyIndex, 16)
	seen := map[string]struct{}{}
	dropped := 0

	for _, r := range snap.Rows {
		code, ok := r.String(codeCol)
		if !ok || code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		year, ok := ParsePeriodYear(code)
		if !ok {
			dropped++
			continue
		}
		ids[code] = len(periods)
		periods = append(periods, warehouse.Period{Code: code, Year: year})
	}
	return periods, ids, dropped
}

// ParsePeriodYear extracts the year from a CBS period code such as "2024JJ00".
// The pattern is fixed: four ASCII digits anchored at the start of the code.
// Anything else reports ok=false, never an error.
func ParsePeriodYear(code string) (int, bool) {
	if len(code) < 4 {
		return 0, false
	}
	year := 0
	for i := 0; i < 4; i++ {
		d := code[i] - '0'
		if d > 9 {
			return 0, false
		}
		year = year*10 + int(d)
	}
	return year, true
}
