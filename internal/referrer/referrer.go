// Package referrer reduces referrer URLs to their registrable domain.
package referrer

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// Classify returns the registrable domain of an optional referrer. An absent
// referrer stays absent. A referrer whose domain cannot be determined is
// returned unchanged.
func Classify(raw string, present bool) (string, bool) {
	if !present {
		return "", false
	}
	return Domain(raw), true
}

// Domain returns the registrable domain ("first-level domain") of rawURL,
// e.g. "foo.co.uk" for "https://a.b.foo.co.uk/x". On failure it returns
// rawURL itself, so Domain(Domain(x)) == Domain(x).
func Domain(rawURL string) string {
	host, err := hostname(rawURL)
	if err != nil {
		return rawURL
	}
	d, err := registrable(host)
	if err != nil {
		return rawURL
	}
	return d
}

func hostname(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", fmt.Errorf("empty url")
	}
	if !schemePrefix.MatchString(s) {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	if net.ParseIP(host) != nil {
		return "", fmt.Errorf("ip address %q has no registrable domain", host)
	}
	return host, nil
}

func registrable(host string) (string, error) {
	suffix, icann := publicsuffix.PublicSuffix(host)
	// The list's implicit "*" rule matches any unknown TLD; treat it as a miss.
	if !icann && !strings.Contains(suffix, ".") {
		return "", fmt.Errorf("unknown public suffix %q", suffix)
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}
