// Package analytics turns classified traffic into ranked summary statistics.
package analytics

import (
	"cmp"
	"math"
	"sort"

	"github.com/runnerr0/apachestats/internal/geo"
	"github.com/runnerr0/apachestats/internal/traffic"
)

// DefaultTopK is the ranked list size used when none is given.
const DefaultTopK = 10

// Ranked is one entry of a top-K list.
type Ranked[K cmp.Ordered] struct {
	Label   K       `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Report is the aggregated result of one analysis run.
type Report struct {
	TopK             int              `json:"top_k"`
	DistinctDays     int              `json:"distinct_days"`
	FirstDate        string           `json:"first_date"`
	LastDate         string           `json:"last_date"`
	ElapsedSeconds   float64          `json:"elapsed_seconds"`
	Humans           int              `json:"humans"`
	Robots           int              `json:"robots"`
	HumanRequests    int              `json:"human_requests"`
	MeanHumansPerDay float64          `json:"mean_humans_per_day"`
	MaxHumansPerDay  int              `json:"max_humans_per_day"`
	Referrers        []Ranked[string] `json:"referrers"`
	Hours            []Ranked[int]    `json:"hours"`
	Locations        []Ranked[string] `json:"locations"`
}

// Options control report building.
type Options struct {
	TopK       int
	SiteDomain string      // referrers ending with it are self-referrals
	Locator    geo.Locator // nil resolves every host to unknown
}

// Aggregate counts set in memory and builds its report.
func Aggregate(set *traffic.ClassifiedRecordSet, opts Options) *Report {
	return Build(Count(set, opts.SiteDomain), opts)
}

// Build ranks a tally. Each ranked list keeps its own denominator:
// eligible referrer requests, human requests, and distinct human hosts.
func Build(t *Tally, opts Options) *Report {
	k := opts.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	locator := opts.Locator
	if locator == nil {
		locator = geo.Nop{}
	}

	r := &Report{
		TopK:          k,
		DistinctDays:  len(t.Days),
		Humans:        len(t.HumanHosts),
		Robots:        len(t.RobotHosts),
		HumanRequests: t.HumanRequests,
	}
	if len(t.Days) > 0 {
		r.FirstDate = t.Days[0]
		r.LastDate = t.Days[len(t.Days)-1]
	}
	if !t.Earliest.IsZero() && !t.Latest.IsZero() {
		r.ElapsedSeconds = t.Latest.Sub(t.Earliest).Seconds()
	}

	if len(t.HumansPerDay) > 0 {
		var sum int
		for _, n := range t.HumansPerDay {
			sum += n
			if n > r.MaxHumansPerDay {
				r.MaxHumansPerDay = n
			}
		}
		r.MeanHumansPerDay = float64(sum) / float64(len(t.HumansPerDay))
	}

	var eligible int
	for _, n := range t.Referrers {
		eligible += n
	}
	r.Referrers = rank(t.Referrers, k, eligible)
	r.Hours = rank(t.Hours, k, t.HumanRequests)

	// Unknown locations are left out of the list but stay in the denominator.
	locations := make(map[string]int)
	for _, host := range t.HumanHosts {
		if loc, ok := locator.Lookup(host); ok {
			locations[loc.Label()]++
		}
	}
	r.Locations = rank(locations, k, len(t.HumanHosts))

	return r
}

// rank sorts counts descending, breaking ties by ascending label, and keeps
// the first k. A zero total yields an empty list.
func rank[K cmp.Ordered](counts map[K]int, k, total int) []Ranked[K] {
	out := make([]Ranked[K], 0, len(counts))
	if total <= 0 {
		return out
	}
	for label, n := range counts {
		out = append(out, Ranked[K]{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Percent = percent(out[i].Count, total)
	}
	return out
}

// percent returns 100*n/total rounded to two decimals.
func percent(n, total int) float64 {
	return math.Round(10000*float64(n)/float64(total)) / 100
}
