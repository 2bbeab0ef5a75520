//go:build unix

package pipeserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// FIFOOpener backs endpoints with named pipes.
type FIFOOpener struct{}

// Create makes a FIFO with owner read/write permission. An existing FIFO is
// reused; any other file at path is an error.
func (FIFOOpener) Create(path string) (bool, error) {
	err := unix.Mkfifo(path, unix.S_IRUSR|unix.S_IWUSR)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, unix.EEXIST) {
		return false, err
	}
	fi, serr := os.Stat(path)
	if serr != nil {
		return false, serr
	}
	if fi.Mode()&os.ModeNamedPipe == 0 {
		return false, fmt.Errorf("%w: not a named pipe", os.ErrExist)
	}
	return false, nil
}

// Open blocks until a reader opens path. If ctx ends first, a throwaway
// non-blocking reader is attached so the pending open can return.
func (FIFOOpener) Open(ctx context.Context, path string) (io.WriteCloser, error) {
	type result struct {
		f   *os.File
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		ch <- result{f, err}
	}()
	select {
	case r := <-ch:
		return r.f, r.err
	case <-ctx.Done():
	}
	rf, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		// The writer open stays pending until some reader shows up; close
		// whatever it returns then.
		log.FromContext(ctx).Warn("could not release pending pipe open", "path", path, "err", err)
		go func() {
			if r := <-ch; r.f != nil {
				_ = r.f.Close()
			}
		}()
		return nil, ctx.Err()
	}
	if r := <-ch; r.f != nil {
		_ = r.f.Close()
	}
	_ = rf.Close()
	return nil, ctx.Err()
}

// Remove unlinks the FIFO.
func (FIFOOpener) Remove(path string) error { return os.Remove(path) }

// DefaultOpener is the platform's named-pipe implementation.
func DefaultOpener() (Opener, error) { return FIFOOpener{}, nil }
