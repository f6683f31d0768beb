package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/apachestats/internal/referrer"
	"github.com/runnerr0/apachestats/internal/traffic"
)

// Tally holds the grouped counts a report is built from. Both the in-memory
// engine (Count) and the SQLite engine produce it.
type Tally struct {
	Days          []string // distinct calendar dates across all records, sorted
	Earliest      time.Time
	Latest        time.Time
	RobotHosts    []string // sorted
	HumanHosts    []string // sorted
	HumanRequests int
	HumansPerDay  map[string]int // date -> distinct human hosts
	Hours         map[int]int    // hour of day -> human requests
	Referrers     map[string]int // referrer domain -> human requests, self-referrals excluded
}

// NewTally returns an empty Tally with its maps allocated.
func NewTally() *Tally {
	return &Tally{
		Days:         []string{},
		RobotHosts:   []string{},
		HumanHosts:   []string{},
		HumansPerDay: make(map[string]int),
		Hours:        make(map[int]int),
		Referrers:    make(map[string]int),
	}
}

// IsSelfReferral reports whether a referrer domain belongs to the site.
// It is a plain suffix test.
func IsSelfReferral(domain, siteDomain string) bool {
	return strings.HasSuffix(domain, siteDomain)
}

type dayHost struct {
	date string
	host string
}

// Count groups a classified record set in memory.
func Count(set *traffic.ClassifiedRecordSet, siteDomain string) *Tally {
	t := NewTally()

	days := make(map[string]struct{})
	for i, r := range set.Records {
		days[r.Date] = struct{}{}
		if i == 0 || r.RequestTime.Before(t.Earliest) {
			t.Earliest = r.RequestTime
		}
		if i == 0 || r.RequestTime.After(t.Latest) {
			t.Latest = r.RequestTime
		}
	}
	for d := range days {
		t.Days = append(t.Days, d)
	}
	sort.Strings(t.Days)

	t.RobotHosts = set.Robots()
	t.HumanHosts = set.Humans()

	seen := make(map[dayHost]struct{})
	for _, r := range set.HumanRequests() {
		t.HumanRequests++
		t.Hours[r.Hour]++

		key := dayHost{date: r.Date, host: r.RemoteHost}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			t.HumansPerDay[r.Date]++
		}

		if d, ok := referrer.Classify(r.Referer()); ok && !IsSelfReferral(d, siteDomain) {
			t.Referrers[d]++
		}
	}

	return t
}
