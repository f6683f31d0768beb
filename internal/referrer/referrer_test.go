package referrer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.example.com/path?q=1", "example.com"},
		{"http://a.b.foo.co.uk/", "foo.co.uk"},
		{"www.example.com/path", "example.com"},
		{"HTTPS://News.YCombinator.COM:443/item", "ycombinator.com"},
		{"example.com", "example.com"},
		{"android-app://com.google.android.gm/", "android.gm"},
		{"https://someone.github.io/blog", "someone.github.io"},
		// Degrades to identity.
		{"http://localhost:8080/", "http://localhost:8080/"},
		{"http://192.168.1.10/admin", "http://192.168.1.10/admin"},
		{"https://intranet.corp-unknown-tld/", "https://intranet.corp-unknown-tld/"},
		{"https://co.uk/", "https://co.uk/"},
		{"not a url at all", "not a url at all"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Domain(tt.input), "Domain(%q)", tt.input)
	}
}

func TestDomainIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.example.com/path",
		"http://a.b.foo.co.uk/",
		"https://someone.github.io/blog",
		"http://localhost/",
		"garbage value",
		"http://[::1]/",
	}
	for _, in := range inputs {
		once := Domain(in)
		assert.Equal(t, once, Domain(once), "Domain not idempotent for %q", in)
	}
}

func TestClassifyAbsent(t *testing.T) {
	d, ok := Classify("", false)
	assert.False(t, ok)
	assert.Empty(t, d)

	d, ok = Classify("https://www.bing.com/search", true)
	assert.True(t, ok)
	assert.Equal(t, "bing.com", d)
}
