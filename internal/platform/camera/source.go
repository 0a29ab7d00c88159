package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirSource replays the PNG and JPEG files of a directory in name order.
type DirSource struct {
	Dir string
	// Loop restarts from the first frame instead of ending the stream.
	Loop bool
}

func (d DirSource) Open(_ context.Context) (Stream, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(d.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames in %s", d.Dir)
	}
	sort.Strings(files)
	return &fileStream{files: files, loop: d.Loop}, nil
}

type fileStream struct {
	mu     sync.Mutex
	files  []string
	next   int
	loop   bool
	closed bool
}

func (s *fileStream) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.next >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.next = 0
	}
	path := s.files[s.next]
	s.next++
	s.mu.Unlock()

	return decodeFile(path)
}

func (s *fileStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// StaticSource serves a fixed list of in-memory frames once.
type StaticSource []image.Image

func (s StaticSource) Open(_ context.Context) (Stream, error) {
	return &staticStream{frames: s}, nil
}

type staticStream struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	closed bool
}

func (s *staticStream) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *staticStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
