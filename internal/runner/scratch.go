package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Scratch owns a set of temporary files. Every file created or tracked
// through it is removed by Cleanup, which callers defer right after
// creating the Scratch.
type Scratch struct {
	dir   string
	paths []string
}

// NewScratch creates a scratch set whose files live in dir (the system
// temporary directory when empty).
func NewScratch(dir string) *Scratch {
	return &Scratch{dir: dir}
}

// Create creates a uniquely named file from pattern (see os.CreateTemp)
// and registers it for removal. The returned file is open for writing.
func (s *Scratch) Create(pattern string) (*os.File, error) {
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	s.paths = append(s.paths, f.Name())
	return f, nil
}

// Reserve creates an empty uniquely named file and returns its path,
// closed, for tools that write their output to a named file.
func (s *Scratch) Reserve(pattern string) (string, error) {
	f, err := s.Create(pattern)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return f.Name(), nil
}

// Track registers a path produced by an external tool for removal.
func (s *Scratch) Track(path string) {
	s.paths = append(s.paths, path)
}

// Paths returns the registered paths in registration order.
func (s *Scratch) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Cleanup removes every registered path. Paths that no longer exist are
// ignored.
func (s *Scratch) Cleanup() error {
	var errs []error
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.paths = nil
	return errors.Join(errs...)
}
