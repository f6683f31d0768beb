// Package traffic partitions visiting hosts into robots and humans.
//
// Classification is host-level and global: a host that requested the
// robot-exclusion file even once is a robot for its whole request history.
package traffic

import (
	"sort"
	"strings"

	"github.com/runnerr0/apachestats/internal/logrecord"
)

// Rules are the request-line markers that drive classification.
type Rules struct {
	RobotMarker  string   // substring that marks a robot-exclusion fetch
	NoiseMarkers []string // substrings of requests that are never counted as human traffic
}

// DefaultRules returns the conventional markers.
func DefaultRules() Rules {
	return Rules{
		RobotMarker:  "/robots.txt",
		NoiseMarkers: []string{"favicon"},
	}
}

// IsRobotProbe reports whether a request line fetches the robot-exclusion file.
func (r Rules) IsRobotProbe(requestLine string) bool {
	return r.RobotMarker != "" && strings.Contains(requestLine, r.RobotMarker)
}

// IsNoise reports whether a request line is a noise asset fetch.
func (r Rules) IsNoise(requestLine string) bool {
	for _, m := range r.NoiseMarkers {
		if m != "" && strings.Contains(requestLine, m) {
			return true
		}
	}
	return false
}

// ClassifiedRecordSet holds all records plus the robot/human host partition.
// It is read-only once built.
type ClassifiedRecordSet struct {
	Records    []logrecord.Record
	RobotHosts map[string]struct{}
	HumanHosts map[string]struct{}

	rules Rules
}

// Classify partitions the hosts seen in records.
func Classify(records []logrecord.Record, rules Rules) *ClassifiedRecordSet {
	set := &ClassifiedRecordSet{
		Records:    records,
		RobotHosts: make(map[string]struct{}),
		HumanHosts: make(map[string]struct{}),
		rules:      rules,
	}

	for _, r := range records {
		if rules.IsRobotProbe(r.RequestLine) {
			set.RobotHosts[r.RemoteHost] = struct{}{}
		}
	}
	for _, r := range records {
		if _, robot := set.RobotHosts[r.RemoteHost]; !robot {
			set.HumanHosts[r.RemoteHost] = struct{}{}
		}
	}

	return set
}

// Rules returns the rules the set was classified with.
func (s *ClassifiedRecordSet) Rules() Rules { return s.rules }

// IsRobot reports whether host was classified as a robot.
func (s *ClassifiedRecordSet) IsRobot(host string) bool {
	_, ok := s.RobotHosts[host]
	return ok
}

// Robots returns the robot hosts in sorted order.
func (s *ClassifiedRecordSet) Robots() []string { return sortedKeys(s.RobotHosts) }

// Humans returns the human hosts in sorted order.
func (s *ClassifiedRecordSet) Humans() []string { return sortedKeys(s.HumanHosts) }

// HumanRequests returns records from human hosts, minus noise fetches.
func (s *ClassifiedRecordSet) HumanRequests() []logrecord.Record {
	var out []logrecord.Record
	for _, r := range s.Records {
		if _, human := s.HumanHosts[r.RemoteHost]; !human {
			continue
		}
		if s.rules.IsNoise(r.RequestLine) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RobotRequests returns every record from a robot host.
func (s *ClassifiedRecordSet) RobotRequests() []logrecord.Record {
	var out []logrecord.Record
	for _, r := range s.Records {
		if s.IsRobot(r.RemoteHost) {
			out = append(out, r)
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
