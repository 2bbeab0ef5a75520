package pipeserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// MemOpener is an in-process stand-in for named pipes. Open blocks until
// Attach is called for the same path, and writes block until the attached
// reader drains them.
type MemOpener struct {
	mu    sync.Mutex
	pipes map[string]*memPipe
}

type memPipe struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	attached chan struct{}
	once     sync.Once
}

// NewMemOpener returns an empty in-process opener.
func NewMemOpener() *MemOpener {
	return &MemOpener{pipes: make(map[string]*memPipe)}
}

func (m *MemOpener) Create(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pipes[path]; ok {
		return false, nil
	}
	r, w := io.Pipe()
	m.pipes[path] = &memPipe{r: r, w: w, attached: make(chan struct{})}
	return true, nil
}

func (m *MemOpener) lookup(path string) (*memPipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipes[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return p, nil
}

func (m *MemOpener) Open(ctx context.Context, path string) (io.WriteCloser, error) {
	p, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	select {
	case <-p.attached:
		return p.w, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Attach connects a reader to path, releasing a pending Open.
func (m *MemOpener) Attach(path string) (io.ReadCloser, error) {
	p, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	p.once.Do(func() { close(p.attached) })
	return p.r, nil
}

func (m *MemOpener) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pipes, path)
	return nil
}
