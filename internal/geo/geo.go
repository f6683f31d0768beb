// Package geo resolves visitor hosts to an approximate location.
package geo

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// Location is a resolved city and country.
type Location struct {
	City    string
	Country string
}

// Label formats the location as "City,Country".
func (l Location) Label() string {
	return l.City + "," + l.Country
}

// Locator resolves a host to a Location. ok is false when the host is
// unknown; implementations never fail outward.
type Locator interface {
	Lookup(host string) (loc Location, ok bool)
}

// Nop resolves every host to unknown.
type Nop struct{}

// Lookup implements Locator.
func (Nop) Lookup(string) (Location, bool) { return Location{}, false }

// cityRecord is the subset of a GeoIP2/GeoLite2 City entry we read.
type cityRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
}

// MaxMind looks hosts up in a local MaxMind City database.
type MaxMind struct {
	reader *maxminddb.Reader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maxmind db: %w", err)
	}
	return &MaxMind{reader: r}, nil
}

// Lookup implements Locator. Hosts that are not IP literals, addresses
// missing from the database, and entries without English city and country
// names all resolve to unknown.
func (m *MaxMind) Lookup(host string) (Location, bool) {
	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return Location{}, false
	}
	var rec cityRecord
	if err := m.reader.Lookup(ip, &rec); err != nil {
		return Location{}, false
	}
	city, country := rec.City.Names["en"], rec.Country.Names["en"]
	if city == "" || country == "" {
		return Location{}, false
	}
	return Location{City: city, Country: country}, true
}

// Close releases the database.
func (m *MaxMind) Close() error {
	return m.reader.Close()
}

// Open returns a Locator for the database at path. An empty path disables
// location resolution. A database that cannot be opened is logged and
// also disables resolution; the returned close func is always safe to call.
func Open(path string, logger *slog.Logger) (Locator, func() error) {
	if path == "" {
		return Nop{}, func() error { return nil }
	}
	m, err := OpenMaxMind(path)
	if err != nil {
		if logger != nil {
			logger.Warn("location lookup disabled", "path", path, "error", err)
		}
		return Nop{}, func() error { return nil }
	}
	return m, m.Close
}

// Map is a fixed host → location table, handy for tests and small fixtures.
type Map map[string]Location

// Lookup implements Locator.
func (m Map) Lookup(host string) (Location, bool) {
	loc, ok := m[host]
	return loc, ok
}
