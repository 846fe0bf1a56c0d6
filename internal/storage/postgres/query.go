package postgres

import (
	"context"
	"fmt"

	"cbsetl/internal/storage"
)

// regionStatsSQL is the denormalized read-path join: crime totals per region,
// filterable by year and crime code. Suppressed rates stay NULL through the
// aggregate so consumers can render "no data".
const regionStatsSQL = `
SELECT r.region_code,
       r.region_name,
       COALESCE(SUM(f.registered_crimes), 0) AS registered_crimes,
       AVG(f.registered_crimes_per_1000)     AS registered_crimes_per_1000
FROM fact_crimes f
JOIN dim_regions r     ON r.id = f.region_id
JOIN dim_crime_types c ON c.id = f.crime_type_id
JOIN dim_periods p     ON p.id = f.period_id
WHERE ($1 = 0 OR p.year = $1)
  AND ($2 = '' OR c.crime_code = $2)
GROUP BY r.region_code, r.region_name
ORDER BY r.region_code`

// RegionStats implements storage.StatsReader. year==0 and crimeCode==""
// disable the respective filter.
func (r *Repository) RegionStats(ctx context.Context, year int, crimeCode string) ([]storage.RegionStat, error) {
	rows, err := r.pool.Query(ctx, regionStatsSQL, year, crimeCode)
	if err != nil {
		return nil, fmt.Errorf("postgres: region stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.RegionStat
	for rows.Next() {
		var s storage.RegionStat
		if err := rows.Scan(&s.RegionCode, &s.RegionName, &s.RegisteredCrimes, &s.AvgPer1000); err != nil {
			return nil, fmt.Errorf("postgres: region stats scan: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
