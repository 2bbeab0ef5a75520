// Package sink provides the synchronized output destinations shared by all
// workers: a single stream, a split primary/extended pair, or any writer
// such as a named pipe, each optionally compressed.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"bqtools/internal/writers"
)

const bufSize = 64 << 10

// WriteError is a failed write or flush on one destination.
type WriteError struct {
	Dest string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Dest, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// ErrMateAborted is recorded on a split destination when its partner failed.
var ErrMateAborted = errors.New("aborted after mate destination failed")

// Spec describes where a Sink writes.
type Spec struct {
	Path        string // "" or "-" is standard output
	Path2       string // set for split primary/extended output
	Compression Compression
	Level       int
	Stdout      io.Writer // replaces os.Stdout when set; never closed
}

// Dest is one underlying byte destination. All access goes through its mutex.
type Dest struct {
	name string
	mu   sync.Mutex
	bw   *bufio.Writer
	comp io.WriteCloser
	file io.Closer
	err  error
}

func newDest(name string, w io.Writer, file io.Closer, c Compression, level int) (*Dest, error) {
	d := &Dest{name: name, file: file}
	comp, err := c.wrap(w, level)
	if err != nil {
		return nil, err
	}
	if comp != nil {
		d.comp = comp
		w = comp
	}
	d.bw = bufio.NewWriterSize(w, bufSize)
	return d, nil
}

func openDest(path string, stdout io.Writer, c Compression, level int) (*Dest, error) {
	if c == Auto {
		c = Infer(path)
	}
	if path == "" || path == "-" {
		if stdout == nil {
			stdout = os.Stdout
		}
		return newDest("stdout", stdout, nil, c, level)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	d, err := newDest(path, f, f, c, level)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

// write must be called with d.mu held.
func (d *Dest) write(p []byte) error {
	if d.err != nil {
		return d.err
	}
	if _, err := d.bw.Write(p); err != nil {
		d.err = &WriteError{Dest: d.name, Err: writers.Classify(err)}
		return d.err
	}
	return nil
}

func (d *Dest) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	if d.err == nil {
		if err := d.bw.Flush(); err != nil {
			errs = append(errs, &WriteError{Dest: d.name, Err: writers.Classify(err)})
		}
	}
	if d.comp != nil {
		if err := d.comp.Close(); err != nil && d.err == nil {
			errs = append(errs, &WriteError{Dest: d.name, Err: writers.Classify(err)})
		}
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			errs = append(errs, &WriteError{Dest: d.name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Sink is shared by every worker. Writes are serialized per destination and
// happen once per flushed batch, never per record.
type Sink struct {
	primary  *Dest
	extended *Dest

	closeOnce sync.Once
	closeErr  error
}

// Open creates the destinations named by spec.
func Open(spec Spec) (*Sink, error) {
	p, err := openDest(spec.Path, spec.Stdout, spec.Compression, spec.Level)
	if err != nil {
		return nil, err
	}
	s := &Sink{primary: p}
	if spec.Path2 != "" {
		if spec.Path2 == spec.Path {
			_ = p.close()
			return nil, fmt.Errorf("split output paths must differ (%q)", spec.Path)
		}
		x, err := openDest(spec.Path2, spec.Stdout, spec.Compression, spec.Level)
		if err != nil {
			_ = p.close()
			return nil, err
		}
		s.extended = x
	}
	return s, nil
}

// FromWriter wraps an already open writer, e.g. a named pipe. If w is an
// io.Closer it is closed by Close.
func FromWriter(w io.Writer, name string, c Compression) (*Sink, error) {
	var closer io.Closer
	if wc, ok := w.(io.Closer); ok {
		closer = wc
	}
	d, err := newDest(name, w, closer, c, 0)
	if err != nil {
		return nil, err
	}
	return &Sink{primary: d}, nil
}

// Split reports whether the sink has separate primary and extended destinations.
func (s *Sink) Split() bool { return s.extended != nil }

// Write appends p to the primary destination as one unit.
func (s *Sink) Write(p []byte) error {
	s.primary.mu.Lock()
	defer s.primary.mu.Unlock()
	return s.primary.write(p)
}

// WritePair writes the primary and extended halves of the same records.
// In split mode both destinations are held for the duration, so halves from
// different callers never interleave. A failure on either side poisons both.
func (s *Sink) WritePair(p, x []byte) error {
	if s.extended == nil {
		s.primary.mu.Lock()
		defer s.primary.mu.Unlock()
		if err := s.primary.write(p); err != nil {
			return err
		}
		return s.primary.write(x)
	}

	s.primary.mu.Lock()
	defer s.primary.mu.Unlock()
	s.extended.mu.Lock()
	defer s.extended.mu.Unlock()

	if err := s.primary.write(p); err != nil {
		s.poison(s.extended, err)
		return err
	}
	if err := s.extended.write(x); err != nil {
		s.poison(s.primary, err)
		return err
	}
	return nil
}

func (s *Sink) poison(d *Dest, cause error) {
	if d.err == nil {
		d.err = &WriteError{Dest: d.name, Err: fmt.Errorf("%w: %w", ErrMateAborted, cause)}
	}
}

// Close flushes compression state and closes owned files. It is idempotent.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		errs := []error{s.primary.close()}
		if s.extended != nil {
			errs = append(errs, s.extended.close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
