// Package scan runs the camera capture loop that turns frames into patient
// identifiers.
//
// A Lifecycle owns the camera from Start until it is disposed. The lease is
// released on every exit path: Dispose, cancellation of the Start context,
// and the end of the frame stream.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/camera"
)

type State int

const (
	StateIdle State = iota
	StateScanning
	StateDecoded
	StateError
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDecoded:
		return "decoded"
	case StateError:
		return "error"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrRunning  = errors.New("scan: already running")
	ErrDisposed = errors.New("scan: lifecycle disposed")
)

// Config mirrors the scanner widget settings.
type Config struct {
	FramesPerSecond int
	// BoxSize is the edge of the centred square that is decoded; 0 decodes
	// the whole frame.
	BoxSize int
}

func DefaultConfig() Config {
	return Config{FramesPerSecond: 10, BoxSize: 250}
}

type Lifecycle struct {
	guard   *camera.Guard
	source  camera.Source
	decoder Decoder
	logger  zerolog.Logger

	mu         sync.Mutex
	state      State
	last       string
	lastErr    error
	lease      *camera.Lease
	cancel     context.CancelFunc
	done       chan struct{}
	delivering bool // onDecode is running on the scan goroutine
}

func New(guard *camera.Guard, source camera.Source, decoder Decoder, logger zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		guard:   guard,
		source:  source,
		decoder: decoder,
		logger:  logger.With().Str("component", "scan").Logger(),
	}
}

// Start acquires the camera and begins decoding in the background.
// onDecode runs on the scan goroutine for every new identifier; the same
// code held in view is reported once until it leaves the box.
func (l *Lifecycle) Start(ctx context.Context, cfg Config, onDecode func(identifier string)) error {
	if cfg.FramesPerSecond <= 0 {
		cfg.FramesPerSecond = DefaultConfig().FramesPerSecond
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateDisposed:
		return ErrDisposed
	case StateIdle:
	default:
		return ErrRunning
	}

	lease, err := l.guard.Acquire(ctx, l.source, "scanner")
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.lease = lease
	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = StateScanning

	l.logger.Info().
		Int("fps", cfg.FramesPerSecond).
		Int("box", cfg.BoxSize).
		Msg("scanner started")

	go l.run(loopCtx, lease, cfg, onDecode, l.done)
	return nil
}

func (l *Lifecycle) run(ctx context.Context, lease *camera.Lease, cfg Config, onDecode func(string), done chan struct{}) {
	defer close(done)
	defer l.release(lease)
	defer l.setState(StateDisposed)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.FramesPerSecond))
	defer ticker.Stop()

	previous := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		frame, err := lease.Stream().Next(ctx)
		if errors.Is(err, io.EOF) {
			l.logger.Info().Msg("frame stream ended")
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn().Err(err).Msg("frame read failed")
			l.fail(err)
			continue
		}

		text, err := l.decoder.Decode(CenterBox(frame, cfg.BoxSize))
		switch {
		case errors.Is(err, ErrNotFound):
			previous = ""
			l.setState(StateScanning)
			continue
		case err != nil:
			l.logger.Debug().Err(err).Msg("frame decode failed")
			l.fail(err)
			continue
		case text == previous:
			continue
		}
		previous = text

		l.mu.Lock()
		l.state = StateDecoded
		l.last = text
		l.mu.Unlock()

		l.logger.Debug().Str("identifier", text).Msg("code decoded")
		l.deliver(onDecode, text)
		l.setState(StateScanning)
	}
}

func (l *Lifecycle) deliver(onDecode func(string), text string) {
	if onDecode == nil {
		return
	}
	l.mu.Lock()
	l.delivering = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.delivering = false
		l.mu.Unlock()
		if r := recover(); r != nil {
			l.logger.Error().
				Str("identifier", text).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("decode handler panicked")
		}
	}()
	onDecode(text)
}

func (l *Lifecycle) fail(err error) {
	l.mu.Lock()
	if l.state != StateDisposed {
		l.state = StateError
		l.lastErr = err
	}
	l.mu.Unlock()
}

func (l *Lifecycle) setState(s State) {
	l.mu.Lock()
	if l.state != StateDisposed {
		l.state = s
	}
	l.mu.Unlock()
}

func (l *Lifecycle) release(lease *camera.Lease) {
	if err := lease.Release(); err != nil {
		l.logger.Warn().Err(err).Msg("camera teardown failed")
	}
}

// Dispose stops the loop and releases the camera. Teardown errors are
// logged, never returned. It is safe to call more than once, and on a
// lifecycle that never started. Called from onDecode it does not wait for
// the loop, which exits once the callback returns.
func (l *Lifecycle) Dispose() {
	l.mu.Lock()
	cancel, done, lease := l.cancel, l.done, l.lease
	wasRunning := l.state != StateIdle && l.state != StateDisposed
	inCallback := l.delivering
	l.state = StateDisposed
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		if !inCallback {
			<-done
		}
	}
	if lease != nil {
		l.release(lease)
	}
	if wasRunning {
		l.logger.Info().Msg("scanner disposed")
	}
}

// Wait blocks until the scan loop has exited.
func (l *Lifecycle) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Last returns the most recently decoded identifier.
func (l *Lifecycle) Last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Err returns the most recent non-fatal frame or decode error.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
