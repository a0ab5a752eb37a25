package report

import (
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Output receives the files of a report. Paths are slash separated and relative.
type Output interface {
	Write(path string, content []byte) error
	Close() error
}

// DirectoryOutput writes report files below a directory.
type DirectoryOutput struct {
	root string
}

// NewDirectoryOutput creates the output directory if needed.
func NewDirectoryOutput(root string) (*DirectoryOutput, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "unable to create output directory %s", root)
	}
	return &DirectoryOutput{root: root}, nil
}

// Write implements Output.
func (o *DirectoryOutput) Write(p string, content []byte) error {
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	target := filepath.Join(o.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "unable to create directory for %s", clean)
	}
	return errors.Wrapf(ioutil.WriteFile(target, content, 0644), "unable to write %s", clean)
}

// Close implements Output.
func (o *DirectoryOutput) Close() error { return nil }

// MemoryOutput keeps report files in memory in the order they were written.
type MemoryOutput struct {
	mu     sync.Mutex
	paths  []string
	files  map[string][]byte
	closed bool
}

// NewMemoryOutput creates an empty in-memory output.
func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{files: map[string][]byte{}}
}

// Write implements Output. Writing a path twice replaces the content.
func (o *MemoryOutput) Write(p string, content []byte) error {
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errors.Errorf("output closed, cannot write %s", clean)
	}
	if _, ok := o.files[clean]; !ok {
		o.paths = append(o.paths, clean)
	}
	o.files[clean] = append([]byte(nil), content...)
	return nil
}

// Close implements Output.
func (o *MemoryOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// Paths returns the written paths in write order.
func (o *MemoryOutput) Paths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.paths...)
}

// Content returns the content written to p.
func (o *MemoryOutput) Content(p string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.files[p]
	return c, ok
}

func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + p)[1:]
	if clean == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return "", errors.Errorf("invalid report path %q", p)
	}
	return clean, nil
}
