package traffic

import (
	"testing"

	"github.com/runnerr0/apachestats/internal/logrecord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(host, requestLine string) logrecord.Record {
	return logrecord.Record{RemoteHost: host, RequestLine: requestLine, FinalStatus: 200}
}

func TestClassify_RobotIsHostLevel(t *testing.T) {
	records := []logrecord.Record{
		rec("10.0.0.1", "GET /index.html HTTP/1.1"), // before the probe
		rec("10.0.0.1", "GET /robots.txt HTTP/1.1"),
		rec("10.0.0.1", "GET /about HTTP/1.1"), // after the probe
		rec("10.0.0.2", "GET / HTTP/1.1"),
	}

	set := Classify(records, DefaultRules())

	assert.Equal(t, []string{"10.0.0.1"}, set.Robots())
	assert.Equal(t, []string{"10.0.0.2"}, set.Humans())
	assert.True(t, set.IsRobot("10.0.0.1"))
	assert.False(t, set.IsRobot("10.0.0.2"))

	human := set.HumanRequests()
	require.Len(t, human, 1)
	assert.Equal(t, "10.0.0.2", human[0].RemoteHost)

	assert.Len(t, set.RobotRequests(), 3)
}

func TestClassify_RobotsOnlyHostExcluded(t *testing.T) {
	set := Classify([]logrecord.Record{rec("crawler", "GET /robots.txt HTTP/1.0")}, DefaultRules())

	assert.Equal(t, []string{"crawler"}, set.Robots())
	assert.Empty(t, set.Humans())
	assert.Empty(t, set.HumanRequests())
}

func TestClassify_NoRobots(t *testing.T) {
	set := Classify([]logrecord.Record{
		rec("a", "GET / HTTP/1.1"),
		rec("b", "GET /x HTTP/1.1"),
		rec("a", "GET /y HTTP/1.1"),
	}, DefaultRules())

	assert.Empty(t, set.RobotHosts)
	assert.Equal(t, []string{"a", "b"}, set.Humans())
	assert.Len(t, set.HumanRequests(), 3)
	assert.Empty(t, set.RobotRequests())
}

func TestClassify_FaviconIsNoise(t *testing.T) {
	set := Classify([]logrecord.Record{
		rec("a", "GET / HTTP/1.1"),
		rec("a", "GET /favicon.ico HTTP/1.1"),
		rec("b", "GET /favicon.ico HTTP/1.1"),
	}, DefaultRules())

	// b only fetched the favicon but is still a human host.
	assert.Equal(t, []string{"a", "b"}, set.Humans())
	human := set.HumanRequests()
	require.Len(t, human, 1)
	assert.Equal(t, "GET / HTTP/1.1", human[0].RequestLine)
}

func TestClassify_PartitionInvariant(t *testing.T) {
	records := []logrecord.Record{
		rec("a", "GET /robots.txt"),
		rec("b", "GET /"),
		rec("c", "GET /favicon.ico"),
		rec("d", "GET /robots.txt?x=1"),
		rec("b", "GET /robots.txt"),
		rec("e", "GET /blog"),
	}
	set := Classify(records, DefaultRules())

	all := map[string]struct{}{}
	for _, r := range records {
		all[r.RemoteHost] = struct{}{}
	}
	for h := range set.RobotHosts {
		_, human := set.HumanHosts[h]
		assert.False(t, human, "%s is in both sets", h)
	}
	assert.Equal(t, len(all), len(set.RobotHosts)+len(set.HumanHosts))
	assert.Equal(t, []string{"a", "b", "d"}, set.Robots())
	assert.Equal(t, []string{"c", "e"}, set.Humans())
}

func TestClassify_Empty(t *testing.T) {
	set := Classify(nil, DefaultRules())
	assert.Empty(t, set.Robots())
	assert.Empty(t, set.Humans())
	assert.Empty(t, set.HumanRequests())
}

func TestRules_Custom(t *testing.T) {
	rules := Rules{RobotMarker: "/ai.txt", NoiseMarkers: []string{"apple-touch-icon", "favicon"}}

	assert.True(t, rules.IsRobotProbe("GET /ai.txt HTTP/1.1"))
	assert.False(t, rules.IsRobotProbe("GET /robots.txt HTTP/1.1"))
	assert.True(t, rules.IsNoise("GET /apple-touch-icon.png HTTP/1.1"))
	assert.False(t, rules.IsNoise("GET / HTTP/1.1"))

	assert.False(t, Rules{}.IsRobotProbe("GET /robots.txt"), "empty marker never matches")
}
