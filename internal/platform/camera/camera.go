// Package camera abstracts the frame source behind the scanner and enforces
// that only one scanner owns it at a time.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

var (
	// ErrBusy is returned when another holder already owns the camera.
	ErrBusy = errors.New("camera: in use")
	// ErrClosed is returned by streams read after Close.
	ErrClosed = errors.New("camera: stream closed")
)

// Stream yields frames until it returns io.EOF.
type Stream interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Source opens streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Guard hands out at most one Lease at a time.
type Guard struct {
	mu    sync.Mutex
	held  bool
	owner string
}

func NewGuard() *Guard {
	return &Guard{}
}

// Acquire opens src on behalf of owner. It fails with ErrBusy while a
// previous lease is unreleased.
func (g *Guard) Acquire(ctx context.Context, src Source, owner string) (*Lease, error) {
	g.mu.Lock()
	if g.held {
		current := g.owner
		g.mu.Unlock()
		return nil, fmt.Errorf("%w (held by %s)", ErrBusy, current)
	}
	g.held = true
	g.owner = owner
	g.mu.Unlock()

	stream, err := src.Open(ctx)
	if err != nil {
		g.free()
		return nil, fmt.Errorf("open camera: %w", err)
	}
	return &Lease{guard: g, stream: stream}, nil
}

// Held reports whether a lease is outstanding.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

func (g *Guard) free() {
	g.mu.Lock()
	g.held = false
	g.owner = ""
	g.mu.Unlock()
}

// Lease is exclusive ownership of an open stream.
type Lease struct {
	guard  *Guard
	stream Stream
	once   sync.Once
}

func (l *Lease) Stream() Stream { return l.stream }

// Release closes the stream and frees the guard. The guard is freed even
// when Close fails. Only the first call does any work; its Close error is
// returned and later calls return nil.
func (l *Lease) Release() error {
	var err error
	l.once.Do(func() {
		defer l.guard.free()
		if cerr := l.stream.Close(); cerr != nil {
			err = fmt.Errorf("close camera: %w", cerr)
		}
	})
	return err
}
