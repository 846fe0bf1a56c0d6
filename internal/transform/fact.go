package transform

import (
	"strconv"
	"strings"

	"cbsetl/internal/warehouse"
	"cbsetl/pkg/records"
)

// DropStats counts fact rows dropped per unresolvable foreign key. The
// builders never fail on a join gap; they report it here so callers can log
// the counts and tests can assert on them.
type DropStats struct {
	Region    int
	CrimeType int
	Period    int
}

// Total returns the number of rows dropped across all reasons.
func (d DropStats) Total() int { return d.Region + d.CrimeType + d.Period }

// BuildFacts joins the cleaned snapshot against the three dimension indexes,
// replacing natural keys with 0-based surrogate identifiers and coercing the
// two measure columns to nullable floats. Rows with any unresolvable key are
// dropped and counted; non-numeric measures become nil, never an error.
//
// A row is attributed to the first key that fails, in region, crime type,
// period order.
func BuildFacts(
	snap *records.Snapshot,
	cols Columns,
	regionIDs, crimeTypeIDs, periodIDs warehouse.KeyIndex,
) ([]warehouse.Fact, DropStats) {
	facts := make([]warehouse.Fact, 0, snap.Len())
	var drops DropStats

	for _, r := range snap.Rows {
		regionID, ok := lookup(r, cols.RegionCode, regionIDs)
		if !ok {
			drops.Region++
			continue
		}
		crimeID, ok := lookup(r, cols.CrimeType, crimeTypeIDs)
		if !ok {
			drops.CrimeType++
			continue
		}
		periodID, ok := lookup(r, cols.Period, periodIDs)
		if !ok {
			drops.Period++
			continue
		}

		facts = append(facts, warehouse.Fact{
			RegionID:          regionID,
			CrimeTypeID:       crimeID,
			PeriodID:          periodID,
			RegisteredCrimes:  coerceMeasure(r[cols.Registered]),
			RegisteredPer1000: coerceMeasure(r[cols.Per1000]),
		})
	}
	return facts, drops
}

func lookup(r records.Record, col string, ids warehouse.KeyIndex) (int, bool) {
	key, ok := r.String(col)
	if !ok || key == "" {
		return 0, false
	}
	id, ok := ids[key]
	return id, ok
}

// coerceMeasure converts a raw cell to a nullable float. JSON numbers come in
// as float64; strings are parsed after normalizing the Dutch decimal comma.
// Anything unparseable (including the CBS "." placeholder for suppressed
// values) is nil.
func coerceMeasure(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f := t
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
