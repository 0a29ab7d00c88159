package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/camera"
)

// shadeDecoder treats a frame's top-left pixel as the payload: 0 is no code,
// 255 is an unreadable code, anything else decodes to "id-<shade>".
type shadeDecoder struct{}

func (shadeDecoder) Decode(img image.Image) (string, error) {
	y := color.GrayModel.Convert(img.At(img.Bounds().Min.X, img.Bounds().Min.Y)).(color.Gray).Y
	switch y {
	case 0:
		return "", ErrNotFound
	case 255:
		return "", errors.New("checksum mismatch")
	}
	return fmt.Sprintf("id-%d", y), nil
}

func frame(shade uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	return img
}

type collector struct {
	mu  sync.Mutex
	ids []string
}

func (c *collector) add(id string) {
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
}

func (c *collector) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

var fastConfig = Config{FramesPerSecond: 1000}

func TestLifecycle_DecodesUntilStreamEnds(t *testing.T) {
	guard := camera.NewGuard()
	src := camera.StaticSource{frame(7), frame(7), frame(0), frame(7), frame(9)}
	l := New(guard, src, shadeDecoder{}, zerolog.Nop())

	var got collector
	if err := l.Start(context.Background(), fastConfig, got.add); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Wait()

	want := []string{"id-7", "id-7", "id-9"}
	ids := got.list()
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("decode %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
	if l.State() != StateDisposed {
		t.Errorf("expected disposed after end of stream, got %s", l.State())
	}
	if l.Last() != "id-9" {
		t.Errorf("expected last identifier id-9, got %s", l.Last())
	}
	if guard.Held() {
		t.Error("camera must be released at end of stream")
	}
	l.Dispose()
}

func TestLifecycle_CameraBusy(t *testing.T) {
	guard := camera.NewGuard()
	first := New(guard, blockingSource{}, shadeDecoder{}, zerolog.Nop())
	if err := first.Start(context.Background(), fastConfig, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer first.Dispose()

	second := New(guard, blockingSource{}, shadeDecoder{}, zerolog.Nop())
	if err := second.Start(context.Background(), fastConfig, nil); !errors.Is(err, camera.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if second.State() != StateIdle {
		t.Errorf("failed start should leave the lifecycle idle, got %s", second.State())
	}
	if err := first.Start(context.Background(), fastConfig, nil); !errors.Is(err, ErrRunning) {
		t.Errorf("expected ErrRunning, got %v", err)
	}
}

// blockingSource yields no frames until cancelled, and its Close fails.
type blockingSource struct{}

func (blockingSource) Open(context.Context) (camera.Stream, error) { return blockingStream{}, nil }

type blockingStream struct{}

func (blockingStream) Next(ctx context.Context) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStream) Close() error { return errors.New("device did not stop") }

func TestLifecycle_DisposeReleasesCameraWhenTeardownFails(t *testing.T) {
	guard := camera.NewGuard()
	l := New(guard, blockingSource{}, shadeDecoder{}, zerolog.Nop())
	if err := l.Start(context.Background(), fastConfig, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != StateScanning {
		t.Fatalf("expected scanning, got %s", l.State())
	}

	l.Dispose()
	if guard.Held() {
		t.Fatal("camera must be released even when close fails")
	}
	if l.State() != StateDisposed {
		t.Errorf("expected disposed, got %s", l.State())
	}

	// Idempotent, and the camera is usable again.
	l.Dispose()
	lease, err := guard.Acquire(context.Background(), camera.StaticSource{}, "next")
	if err != nil {
		t.Fatalf("expected camera to be free, got %v", err)
	}
	lease.Release()
}

func TestLifecycle_DisposeWithoutStart(t *testing.T) {
	l := New(camera.NewGuard(), camera.StaticSource{}, shadeDecoder{}, zerolog.Nop())
	l.Dispose()
	l.Dispose()
	l.Wait()
	if err := l.Start(context.Background(), fastConfig, nil); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
}

func TestLifecycle_ContextCancelReleasesCamera(t *testing.T) {
	guard := camera.NewGuard()
	l := New(guard, blockingSource{}, shadeDecoder{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx, fastConfig, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	finished := make(chan struct{})
	go func() {
		l.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("scan loop did not exit after cancellation")
	}
	if guard.Held() {
		t.Error("camera must be released after cancellation")
	}
}

func TestLifecycle_ErrorsAndPanicsDoNotStopScanning(t *testing.T) {
	guard := camera.NewGuard()
	src := camera.StaticSource{frame(255), frame(3), frame(0), frame(4)}
	l := New(guard, src, shadeDecoder{}, zerolog.Nop())

	var got collector
	onDecode := func(id string) {
		got.add(id)
		if id == "id-3" {
			panic("handler bug")
		}
	}
	if err := l.Start(context.Background(), fastConfig, onDecode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Wait()

	ids := got.list()
	if len(ids) != 2 || ids[0] != "id-3" || ids[1] != "id-4" {
		t.Errorf("expected scanning to continue past errors, got %v", ids)
	}
	if l.Err() == nil {
		t.Error("expected the decode error to be recorded")
	}
}

func TestState_String(t *testing.T) {
	if StateDecoded.String() != "decoded" || State(42).String() != "state(42)" {
		t.Error("unexpected state names")
	}
}

func qrFrame(t *testing.T, text string, qrSize, canvasSize int) image.Image {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, qrSize, qrSize, nil)
	if err != nil {
		t.Fatalf("encode qr: %v", err)
	}
	canvas := image.NewGray(image.Rect(0, 0, canvasSize, canvasSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	off := (canvasSize - qrSize) / 2
	draw.Draw(canvas, image.Rect(off, off, off+qrSize, off+qrSize), matrix, image.Point{}, draw.Src)
	return canvas
}

func TestQRDecoder_CentredBox(t *testing.T) {
	img := qrFrame(t, "MIG-000123", 200, 400)
	got, err := NewQRDecoder().Decode(CenterBox(img, 250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "MIG-000123" {
		t.Errorf("expected MIG-000123, got %s", got)
	}
}

func TestQRDecoder_BlankFrame(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 300, 300))
	draw.Draw(blank, blank.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if _, err := NewQRDecoder().Decode(blank); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCenterBox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	img.Set(195, 115, color.RGBA{R: 255, A: 255})
	img.Set(194, 115, color.RGBA{G: 255, A: 255})

	box := CenterBox(img, 250)
	if box.Bounds() != image.Rect(0, 0, 250, 250) {
		t.Fatalf("expected 250x250 box at the origin, got %v", box.Bounds())
	}
	if r, g, _, _ := box.At(0, 0).RGBA(); r != 0xffff || g != 0 {
		t.Errorf("expected the box to start at the frame's (195,115), got r=%d g=%d", r, g)
	}
	if CenterBox(img, 0) != image.Image(img) || CenterBox(img, 1000) != image.Image(img) {
		t.Error("expected the original frame when the box does not apply")
	}
}

func TestLifecycle_DisposeFromDecodeCallback(t *testing.T) {
	guard := camera.NewGuard()
	src := camera.StaticSource{frame(7), frame(8), frame(9)}
	l := New(guard, src, shadeDecoder{}, zerolog.Nop())

	returned := make(chan struct{})
	var got collector
	onDecode := func(id string) {
		got.add(id)
		l.Dispose()
		close(returned)
	}
	if err := l.Start(context.Background(), fastConfig, onDecode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispose from the decode callback did not return")
	}
	l.Wait()

	if guard.Held() {
		t.Error("camera must be released after disposing from the callback")
	}
	if l.State() != StateDisposed {
		t.Errorf("expected disposed, got %s", l.State())
	}
	if ids := got.list(); len(ids) != 1 || ids[0] != "id-7" {
		t.Errorf("expected a single delivery, got %v", ids)
	}
}

// oneShotSource yields one frame, then blocks until cancelled.
type oneShotSource struct{ img image.Image }

func (s oneShotSource) Open(context.Context) (camera.Stream, error) {
	return &oneShotStream{img: s.img}, nil
}

type oneShotStream struct {
	mu   sync.Mutex
	img  image.Image
	sent bool
}

func (s *oneShotStream) Next(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	if !s.sent {
		s.sent = true
		s.mu.Unlock()
		return s.img, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *oneShotStream) Close() error { return nil }

func TestLifecycle_ScanningAfterDelivery(t *testing.T) {
	l := New(camera.NewGuard(), oneShotSource{img: frame(5)}, shadeDecoder{}, zerolog.Nop())
	delivered := make(chan struct{})
	if err := l.Start(context.Background(), fastConfig, func(string) { close(delivered) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Dispose()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("code was never delivered")
	}
	deadline := time.Now().Add(2 * time.Second)
	for l.State() != StateScanning {
		if time.Now().After(deadline) {
			t.Fatalf("expected scanning after delivery, got %s", l.State())
		}
		time.Sleep(time.Millisecond)
	}
	if l.Last() != "id-5" {
		t.Errorf("expected last identifier id-5, got %s", l.Last())
	}
}
