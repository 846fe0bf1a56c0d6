// Package schema locates the semantic columns of the CBS crime dataset.
//
// The upstream source does not guarantee stable column names across requests
// (historically e.g. "SoortMisdrijf" vs "Misdrijf", "Perioden" vs "Periods"),
// so the transform stage never hardcodes a name. Instead it asks this package
// to resolve a Role against the snapshot's column list. Resolution is a
// two-step rule table per role:
//
//  1. an ordered list of exact candidate names (observed historical naming),
//  2. a case-insensitive substring scan over all columns using role-specific
//     keyword fragments.
//
// The scan takes the first match in column order; callers pass a sorted
// column list so the pick is deterministic. Candidate lists and keyword sets
// are named constants so upstream schema drift is a one-place update.
package schema

import (
	"fmt"
	"strings"
)

// Role identifies the semantic function of a source column.
type Role string

const (
	RoleRegionCode Role = "region_code"
	RoleRegionName Role = "region_name"
	RoleCrimeType  Role = "crime_type"
	RolePeriod     Role = "period"
	RoleRegistered Role = "registered_crimes"
	RolePer1000    Role = "registered_crimes_per_1000"
)

// ResolutionError reports that no column could be matched to a role. This
// always indicates an upstream breaking schema change, never a transient
// condition; the pipeline must abort, not retry.
type ResolutionError struct {
	Role    Role
	Columns []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("schema: no column resolves role %q in columns %v", e.Role, e.Columns)
}

// rule is the per-role resolution table.
type rule struct {
	// exact lists known column names in priority order.
	exact []string
	// keywords are lowercase fragments for the substring fallback; a column
	// matches when it contains any of them.
	keywords []string
	// rateMarkers distinguishes the per-1000 rate column from the absolute
	// count column among "registered" matches. When wantMarker is true the
	// column must contain one of the markers; when rateMarkers is non-empty
	// and wantMarker is false it must contain none.
	rateMarkers []string
	wantMarker  bool
}

// rateMarkers are the fragments that identify a relative (per-1000) measure.
var rateMarkers = []string{"1000", "relatief", "per"}

var rules = map[Role]rule{
	RoleRegionCode: {
		exact:    []string{"region_code", "RegioCode", "KoppelvariabeleRegioCode_306"},
		keywords: []string{"regiocode", "region_code"},
	},
	RoleRegionName: {
		exact:    []string{"RegioS", "Regions"},
		keywords: []string{"regio", "region"},
	},
	RoleCrimeType: {
		exact:    []string{"SoortMisdrijf", "Misdrijf", "CrimeType"},
		keywords: []string{"misdrijf", "crime"},
	},
	RolePeriod: {
		exact:    []string{"Perioden", "Periods"},
		keywords: []string{"periode", "period"},
	},
	RoleRegistered: {
		exact:       []string{"TotaalGeregistreerdeMisdrijven_1", "GeregistreerdeMisdrijven_1"},
		keywords:    []string{"geregistreerd", "registered"},
		rateMarkers: rateMarkers,
		wantMarker:  false,
	},
	RolePer1000: {
		exact:       []string{"GeregistreerdeMisdrijvenPer1000Inw_3", "GeregistreerdeMisdrijvenRelatief_2"},
		keywords:    []string{"geregistreerd", "registered"},
		rateMarkers: rateMarkers,
		wantMarker:  true,
	},
}

// Resolve returns the column name that plays the given role, or a
// *ResolutionError when neither a candidate nor the keyword fallback matches.
func Resolve(role Role, columns []string) (string, error) {
	r, ok := rules[role]
	if !ok {
		return "", fmt.Errorf("schema: unknown role %q", role)
	}

	for _, cand := range r.exact {
		for _, col := range columns {
			if col == cand {
				return col, nil
			}
		}
	}

	for _, col := range columns {
		lc := strings.ToLower(col)
		if !containsAny(lc, r.keywords) {
			continue
		}
		if len(r.rateMarkers) > 0 && containsAny(lc, r.rateMarkers) != r.wantMarker {
			continue
		}
		return col, nil
	}

	return "", &ResolutionError{Role: role, Columns: append([]string(nil), columns...)}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
