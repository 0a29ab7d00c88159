package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type failingCloseSource struct{}

func (failingCloseSource) Open(context.Context) (Stream, error) { return failingCloseStream{}, nil }

type failingCloseStream struct{}

func (failingCloseStream) Next(context.Context) (image.Image, error) { return nil, io.EOF }
func (failingCloseStream) Close() error { return errors.New("device hung") }

type brokenSource struct{}

func (brokenSource) Open(context.Context) (Stream, error) { return nil, errors.New("permission denied") }

func TestGuard_ExclusiveLease(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	lease, err := g.Acquire(ctx, StaticSource{}, "first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Held() {
		t.Fatal("expected guard to be held")
	}
	if _, err := g.Acquire(ctx, StaticSource{}, "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	if err := lease.Release(); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if g.Held() {
		t.Fatal("expected guard to be free after release")
	}
	if _, err := g.Acquire(ctx, StaticSource{}, "second"); err != nil {
		t.Fatalf("expected reacquire to succeed, got %v", err)
	}
}

func TestLease_ReleaseFreesGuardWhenCloseFails(t *testing.T) {
	g := NewGuard()
	lease, err := g.Acquire(context.Background(), failingCloseSource{}, "scanner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := lease.Release(); err == nil {
		t.Fatal("expected close error to be reported")
	}
	if g.Held() {
		t.Fatal("guard must be freed even when close fails")
	}
	if err := lease.Release(); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}

func TestGuard_OpenFailureFreesGuard(t *testing.T) {
	g := NewGuard()
	if _, err := g.Acquire(context.Background(), brokenSource{}, "scanner"); err == nil {
		t.Fatal("expected open error")
	}
	if g.Held() {
		t.Fatal("guard must not stay held after a failed open")
	}
}

func writeFrame(t *testing.T, dir, name string, shade uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create frame: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
}

func TestDirSource_ReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "002.png", 200)
	writeFrame(t, dir, "001.png", 100)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	stream, err := DirSource{Dir: dir}.Open(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	var shades []uint8
	for {
		img, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		shades = append(shades, color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y)
	}
	if len(shades) != 2 || shades[0] != 100 || shades[1] != 200 {
		t.Errorf("expected frames in name order, got %v", shades)
	}
}

func TestDirSource_Loop(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "only.png", 50)

	stream, err := DirSource{Dir: dir, Loop: true}.Open(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := stream.Next(context.Background()); err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
	}
	stream.Close()
	if _, err := stream.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestDirSource_EmptyDir(t *testing.T) {
	if _, err := (DirSource{Dir: t.TempDir()}).Open(context.Background()); err == nil {
		t.Fatal("expected error for a directory without frames")
	}
}
