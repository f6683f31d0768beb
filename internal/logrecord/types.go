package logrecord

import (
	"fmt"
	"time"
)

// Layout of the $time_local field in Common/Combined logs.
const TimeLayout = "02/Jan/2006:15:04:05 -0700"

// DateLayout is the calendar date format used for per-day grouping.
const DateLayout = "2006-01-02"

// Header names carried by the Combined format.
const (
	HeaderReferer   = "Referer"
	HeaderUserAgent = "User-Agent"
)

// Record is a single parsed request from an access log.
type Record struct {
	RemoteHost  string
	RequestTime time.Time
	Date        string // calendar date in the log's own UTC offset
	Hour        int    // 0-23 in the log's own UTC offset
	RequestLine string
	FinalStatus int
	BytesSent   int64
	Headers     map[string]string
}

// Referer returns the Referer header and whether it was present.
func (r Record) Referer() (string, bool) {
	v, ok := r.Headers[HeaderReferer]
	return v, ok
}

// Fields is the raw, named output of a Tokenizer for one line.
type Fields map[string]string

// Tokenizer splits one raw log line into named fields.
type Tokenizer interface {
	Tokenize(line string) (Fields, error)
}

// ParseError reports a line that could not be turned into a Record.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
