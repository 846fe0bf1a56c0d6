package transform

import (
	"strings"

	"cbsetl/pkg/records"
)

// cleanCutset is what CleanStrings strips from both ends of every string
// cell: ASCII whitespace plus the non-breaking space artifacts that show up
// in CBS exports after charset round-trips.
const cleanCutset = " \t\r\n "

// CleanStrings trims every string cell in the snapshot in place and returns
// the same snapshot. Cells that become empty are set to nil so downstream
// stages see one representation of "no value".
func CleanStrings(snap *records.Snapshot) *records.Snapshot {
	for _, r := range snap.Rows {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.Trim(s, cleanCutset)
			if s == "" {
				r[k] = nil
			} else {
				r[k] = s
			}
		}
	}
	return snap
}
