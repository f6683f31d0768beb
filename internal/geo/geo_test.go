package geo

import (
	"bytes"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationLabel(t *testing.T) {
	assert.Equal(t, "Athens,Greece", Location{City: "Athens", Country: "Greece"}.Label())
}

func TestNop(t *testing.T) {
	_, ok := Nop{}.Lookup("8.8.8.8")
	assert.False(t, ok)
}

func TestMap(t *testing.T) {
	m := Map{"1.1.1.1": {City: "Sydney", Country: "Australia"}}

	loc, ok := m.Lookup("1.1.1.1")
	require.True(t, ok)
	assert.Equal(t, "Sydney,Australia", loc.Label())

	_, ok = m.Lookup("2.2.2.2")
	assert.False(t, ok)
}

func TestOpen_EmptyPathDisablesLookup(t *testing.T) {
	loc, closeFn := Open("", nil)
	defer closeFn()

	assert.IsType(t, Nop{}, loc)
}

func TestOpen_BadDatabaseDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a maxmind database"), 0644))

	var buf bytes.Buffer
	loc, closeFn := Open(path, slog.New(slog.NewTextHandler(&buf, nil)))
	defer closeFn()

	assert.IsType(t, Nop{}, loc)
	assert.Contains(t, buf.String(), "location lookup disabled")
}

func TestOpen_MissingDatabaseDegrades(t *testing.T) {
	loc, closeFn := Open(filepath.Join(t.TempDir(), "nope.mmdb"), nil)
	assert.NoError(t, closeFn())

	_, ok := loc.Lookup("8.8.8.8")
	assert.False(t, ok)
}

// writeCityDB writes a small City database: one complete entry, one entry
// with only a country, nothing else.
func writeCityDB(t *testing.T) string {
	t.Helper()
	w, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType: "GeoLite2-City",
		IPVersion:    4,
		RecordSize:   24,
	})
	require.NoError(t, err)

	names := func(en string) mmdbtype.Map {
		return mmdbtype.Map{"names": mmdbtype.Map{"en": mmdbtype.String(en), "de": mmdbtype.String(en + "-de")}}
	}
	entries := map[string]mmdbtype.Map{
		"81.2.69.0/24": {
			"city":    names("London"),
			"country": names("United Kingdom"),
		},
		"89.160.20.0/24": {
			"country": names("Sweden"),
		},
	}
	for cidr, rec := range entries {
		_, network, err := net.ParseCIDR(cidr)
		require.NoError(t, err)
		require.NoError(t, w.Insert(network, rec))
	}

	path := filepath.Join(t.TempDir(), "city.mmdb")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = w.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

func TestMaxMind_Lookup(t *testing.T) {
	m, err := OpenMaxMind(writeCityDB(t))
	require.NoError(t, err)
	defer m.Close()

	tests := []struct {
		name  string
		host  string
		want  string
		known bool
	}{
		{"city and country", "81.2.69.142", "London,United Kingdom", true},
		{"no city name", "89.160.20.112", "", false},
		{"not in database", "203.0.113.9", "", false},
		{"hostname", "crawler.example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := m.Lookup(tt.host)
			assert.Equal(t, tt.known, ok)
			if tt.known {
				assert.Equal(t, tt.want, loc.Label())
			}
		})
	}
}

func TestOpen_ValidDatabase(t *testing.T) {
	loc, closeFn := Open(writeCityDB(t), nil)
	defer closeFn()

	require.IsType(t, &MaxMind{}, loc)
	got, ok := loc.Lookup("81.2.69.1")
	require.True(t, ok)
	assert.Equal(t, Location{City: "London", Country: "United Kingdom"}, got)
}
