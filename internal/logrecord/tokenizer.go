package logrecord

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/satyrius/gonx"
)

// Named log formats in nginx-style $variable notation.
var namedFormats = map[string]string{
	"combined": `$remote_addr $remote_ident $remote_user [$time_local] "$request" $status $body_bytes_sent "$http_referer" "$http_user_agent"`,
	"common":   `$remote_addr $remote_ident $remote_user [$time_local] "$request" $status $body_bytes_sent`,
}

var formatVar = regexp.MustCompile(`\$([A-Za-z0-9_]+)`)

// GonxTokenizer tokenizes lines with a gonx format parser.
type GonxTokenizer struct {
	format string
	parser *gonx.Parser
	names  []string
}

// NewTokenizer returns a tokenizer for a named format ("combined", "common")
// or for a literal format string such as `$remote_addr [$time_local] ...`.
func NewTokenizer(format string) (*GonxTokenizer, error) {
	format = strings.TrimSpace(format)
	if f, ok := namedFormats[strings.ToLower(format)]; ok {
		format = f
	}
	if format == "" {
		return nil, fmt.Errorf("empty log format")
	}

	matches := formatVar.FindAllStringSubmatch(format, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("log format %q has no $variables", format)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	for _, required := range []string{fieldRemoteAddr, fieldTimeLocal, fieldRequest, fieldStatus} {
		if !contains(names, required) {
			return nil, fmt.Errorf("log format %q lacks $%s", format, required)
		}
	}

	return &GonxTokenizer{
		format: format,
		parser: gonx.NewParser(format),
		names:  names,
	}, nil
}

// Format returns the expanded format string.
func (t *GonxTokenizer) Format() string { return t.format }

// Tokenize implements Tokenizer.
func (t *GonxTokenizer) Tokenize(line string) (Fields, error) {
	entry, err := t.parser.ParseString(line)
	if err != nil {
		return nil, err
	}
	fields := make(Fields, len(t.names))
	for _, name := range t.names {
		v, err := entry.Field(name)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}
	return fields, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
