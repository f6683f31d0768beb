package logrecord

import (
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	fieldRemoteAddr = "remote_addr"
	fieldTimeLocal  = "time_local"
	fieldRequest    = "request"
	fieldStatus     = "status"
	fieldBytesSent  = "body_bytes_sent"
	headerPrefix    = "http_"
)

// FromFields maps tokenizer output onto a Record. Header-like fields
// ($http_*) are kept generically; "-" marks an absent value.
func FromFields(f Fields) (Record, error) {
	var rec Record

	rec.RemoteHost = strings.TrimSpace(f[fieldRemoteAddr])
	if rec.RemoteHost == "" || rec.RemoteHost == "-" {
		return Record{}, fmt.Errorf("missing remote host")
	}

	ts, err := time.Parse(TimeLayout, f[fieldTimeLocal])
	if err != nil {
		return Record{}, fmt.Errorf("parse time %q: %w", f[fieldTimeLocal], err)
	}
	rec.RequestTime = ts
	rec.Date = ts.Format(DateLayout)
	rec.Hour = ts.Hour()

	rec.RequestLine = f[fieldRequest]

	status, err := strconv.Atoi(f[fieldStatus])
	if err != nil {
		return Record{}, fmt.Errorf("parse status %q: %w", f[fieldStatus], err)
	}
	rec.FinalStatus = status

	if b := f[fieldBytesSent]; b != "" && b != "-" {
		n, err := strconv.ParseInt(b, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse bytes sent %q: %w", b, err)
		}
		rec.BytesSent = n
	}

	for name, v := range f {
		if !strings.HasPrefix(name, headerPrefix) || v == "" || v == "-" {
			continue
		}
		if rec.Headers == nil {
			rec.Headers = make(map[string]string)
		}
		rec.Headers[headerName(name)] = v
	}

	return rec, nil
}

// headerName turns "http_user_agent" into "User-Agent".
func headerName(field string) string {
	name := strings.ReplaceAll(strings.TrimPrefix(field, headerPrefix), "_", "-")
	return textproto.CanonicalMIMEHeaderKey(name)
}
