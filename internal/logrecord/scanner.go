package logrecord

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Lines longer than this are consumed whole and dropped.
const maxLineBytes = 1 << 20

var errLineTooLong = errors.New("line too long")

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	// Source names the input in diagnostics, e.g. a file path or "-".
	Source string
	// Logger receives one notice per dropped line. Nil disables notices.
	Logger *slog.Logger
}

// Scanner yields Records from a line-oriented reader. It is single pass:
// once Scan returns false the Scanner is spent.
type Scanner struct {
	r       *bufio.Reader
	eof     bool
	tok     Tokenizer
	opts    ScannerOptions
	lineNo  int
	skipped int
	rec     Record
	err     error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader, tok Tokenizer, opts ScannerOptions) *Scanner {
	if opts.Source == "" {
		opts.Source = "-"
	}
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024), tok: tok, opts: opts}
}

// Scan advances to the next parsable record. Unparsable lines are skipped.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for {
		line, err := s.readLine()
		if err == io.EOF {
			return false
		}
		if err != nil && !errors.Is(err, errLineTooLong) {
			s.err = fmt.Errorf("read %s: %w", s.opts.Source, err)
			return false
		}
		s.lineNo++
		if err != nil {
			s.skip(err)
			continue
		}
		rec, err := s.parse(strings.TrimSpace(line))
		if err != nil {
			s.skip(err)
			continue
		}
		s.rec = rec
		return true
	}
}

// readLine returns the next line including its newline. A line over
// maxLineBytes is drained and reported as errLineTooLong. A final line
// without a newline is still returned; io.EOF comes on the call after.
func (s *Scanner) readLine() (string, error) {
	if s.eof {
		return "", io.EOF
	}
	var (
		line []byte
		n    int
	)
	for {
		chunk, err := s.r.ReadSlice('\n')
		n += len(chunk)
		if n <= maxLineBytes {
			line = append(line, chunk...)
		} else {
			line = nil
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			s.eof = true
			if n == 0 {
				return "", io.EOF
			}
			err = nil
		}
		if err != nil {
			return "", err
		}
		if n > maxLineBytes {
			return "", errLineTooLong
		}
		return string(line), nil
	}
}

func (s *Scanner) parse(line string) (Record, error) {
	fields, err := s.tok.Tokenize(line)
	if err != nil {
		return Record{}, err
	}
	return FromFields(fields)
}

func (s *Scanner) skip(err error) {
	s.skipped++
	if s.opts.Logger != nil {
		perr := &ParseError{Source: s.opts.Source, Line: s.lineNo, Err: err}
		s.opts.Logger.Warn("error parsing line", "source", perr.Source, "line", perr.Line, "error", perr.Err)
	}
}

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the first read error. Dropped lines are not errors.
func (s *Scanner) Err() error { return s.err }

// Skipped returns how many lines were dropped so far.
func (s *Scanner) Skipped() int { return s.skipped }

// Lines returns how many lines have been read so far.
func (s *Scanner) Lines() int { return s.lineNo }

// ParseAll reads every record from r.
func ParseAll(r io.Reader, tok Tokenizer) ([]Record, error) {
	sc := NewScanner(r, tok, ScannerOptions{})
	var out []Record
	for sc.Scan() {
		out = append(out, sc.Record())
	}
	return out, sc.Err()
}
