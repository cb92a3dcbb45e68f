package camera

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"gocv.io/x/gocv"
)

// FileSource replays still images in lexical order, for running the lane
// pipeline offline against recorded frames.
type FileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
	loop  bool
}

// OpenFiles matches pattern and prepares a replay.
func OpenFiles(pattern string, loop bool) (*FileSource, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%q: %w", pattern, ErrNoFiles)
	}
	sort.Strings(paths)
	return &FileSource{paths: paths, loop: loop}, nil
}

// Len returns the number of images.
func (f *FileSource) Len() int {
	return len(f.paths)
}

// Read decodes the next image into dst. Unreadable files are skipped.
func (f *FileSource) Read(dst *gocv.Mat) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for attempts := 0; attempts < len(f.paths); attempts++ {
		if f.next >= len(f.paths) {
			if !f.loop {
				return false
			}
			f.next = 0
		}
		path := f.paths[f.next]
		f.next++

		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			continue
		}
		img.CopyTo(dst)
		img.Close()
		return true
	}
	return false
}

// Close is a no-op.
func (f *FileSource) Close() error {
	return nil
}
