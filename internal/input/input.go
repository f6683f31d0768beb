// Package input opens log sources: files, gzip files, or standard input.
package input

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StdinName names standard input in paths and diagnostics.
const StdinName = "-"

// Source is one opened log input.
type Source struct {
	Name string
	io.ReadCloser
}

// Sources is the ordered set of inputs of one run.
type Sources []Source

// Close closes every source and returns the first error.
func (s Sources) Close() error {
	var err error
	for i := range s {
		if e := s[i].Close(); err == nil && e != nil {
			err = e
		}
	}
	return err
}

// Open opens every path before any is read. No paths means standard input.
// If any path cannot be opened, the ones already opened are closed and the
// error is returned; a run never reports on a subset of its inputs.
func Open(paths []string, stdin io.Reader) (Sources, error) {
	if len(paths) == 0 {
		paths = []string{StdinName}
	}

	out := make(Sources, 0, len(paths))
	for _, p := range paths {
		rc, err := openOne(p, stdin)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		out = append(out, Source{Name: p, ReadCloser: rc})
	}
	return out, nil
}

func openOne(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == StdinName {
		return io.NopCloser(stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".gz" {
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &rc{Reader: gr, closers: []io.Closer{gr, f}}, nil
	}
	return f, nil
}

type rc struct {
	io.Reader
	closers []io.Closer
}

func (r *rc) Close() error {
	var err error
	for i := range r.closers {
		if e := r.closers[i].Close(); err == nil && e != nil {
			err = e
		}
	}
	return err
}
