// Package stats computes aggregate inventory statistics.
// All functions are pure: they read the input slice, allocate their own
// result, and touch no shared state, so concurrent calls are safe.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/models"
)

// TimeRange selects which records count as "new". Either Preset is one of
// "24h", "7d", "30d" (resolved against now at compute time), or Start/End
// give an explicit inclusive window. A nil *TimeRange disables the filter.
type TimeRange struct {
	Preset string
	Start  *time.Time
	End    *time.Time
}

var presetDurations = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ValidPreset reports whether s names a supported preset window.
func ValidPreset(s string) bool {
	_, ok := presetDurations[s]
	return ok
}

// Resolve turns the range into concrete bounds. ok is false when the range
// is nil or names an unknown preset, in which case no filtering applies.
func (tr *TimeRange) Resolve(now time.Time) (start, end time.Time, ok bool) {
	if tr == nil {
		return time.Time{}, time.Time{}, false
	}
	if tr.Preset != "" {
		d, known := presetDurations[tr.Preset]
		if !known {
			return time.Time{}, time.Time{}, false
		}
		return now.Add(-d), now, true
	}
	if tr.Start != nil && tr.End != nil {
		return *tr.Start, *tr.End, true
	}
	return time.Time{}, time.Time{}, false
}

// Compute derives the full Stats for the given inventory snapshot.
//
// Records with an empty value for a categorical field are left out of that
// field's counts rather than grouped under a synthetic "unknown" key; this
// mirrors how the dashboard has always behaved. A zero CreatedAt means the
// creation time is unknown and the record never counts as new.
func Compute(servers []models.Server, tr *TimeRange, now time.Time) *models.Stats {
	st := &models.Stats{
		TotalServers:   len(servers),
		StatusCounts:   map[string]int{},
		PlatformCounts: map[string]int{},
		CountryCounts:  map[string]int{},
		ArchCounts:     map[string]int{},
		OSCounts:       map[string]int{},
	}

	// Countries in first-observed order, for the CountryStats tiebreak.
	var countryOrder []string

	for i := range servers {
		s := &servers[i]
		countInto(st.StatusCounts, string(s.Status))
		countInto(st.PlatformCounts, string(s.Platform))
		countInto(st.ArchCounts, string(s.Architecture))
		countInto(st.OSCounts, s.OS)
		if s.Country != "" {
			if _, seen := st.CountryCounts[s.Country]; !seen {
				countryOrder = append(countryOrder, s.Country)
			}
			st.CountryCounts[s.Country]++
		}
	}

	st.CountryStats = countryStats(st.CountryCounts, countryOrder, st.TotalServers)
	st.TimeRangeStats = rollingCounts(servers, now)

	if start, end, ok := tr.Resolve(now); ok {
		st.FilterStart, st.FilterEnd = &start, &end
		st.NewServersCount = countCreatedWithin(servers, start, end)
	}

	return st
}

func countInto(m map[string]int, key string) {
	if key != "" {
		m[key]++
	}
}

// countryStats builds the sorted per-country breakdown. The sort is stable
// over first-observed insertion order, which is the documented tiebreak for
// equal counts.
func countryStats(counts map[string]int, order []string, total int) []models.CountryStat {
	out := make([]models.CountryStat, 0, len(order))
	for _, country := range order {
		count := counts[country]
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(count) / float64(total) * 100))
		}
		out = append(out, models.CountryStat{Country: country, Count: count, Percentage: pct})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// countCreatedWithin counts records with start <= CreatedAt <= end.
// Bounds are inclusive and compared at full timestamp precision.
func countCreatedWithin(servers []models.Server, start, end time.Time) int {
	n := 0
	for i := range servers {
		created := servers[i].CreatedAt
		if created.IsZero() {
			continue
		}
		if !created.Before(start) && !created.After(end) {
			n++
		}
	}
	return n
}

// rollingCounts computes the fixed 24h/7d/30d dashboard counters.
func rollingCounts(servers []models.Server, now time.Time) models.TimeRangeStats {
	var trs models.TimeRangeStats
	cut24h := now.Add(-24 * time.Hour)
	cut7d := now.Add(-7 * 24 * time.Hour)
	cut30d := now.Add(-30 * 24 * time.Hour)
	for i := range servers {
		created := servers[i].CreatedAt
		if created.IsZero() || created.After(now) {
			continue
		}
		if !created.Before(cut30d) {
			trs.Last30d++
			if !created.Before(cut7d) {
				trs.Last7d++
				if !created.Before(cut24h) {
					trs.Last24h++
				}
			}
		}
	}
	return trs
}
