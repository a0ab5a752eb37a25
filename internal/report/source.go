package report

import (
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/maypok86/otter"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultTabWidth is the tab width used when none is configured.
const DefaultTabWidth = 4

// ErrMissingSource is returned by a SourceLocator when a source file cannot be
// found. Reports render counters without source in that case.
var ErrMissingSource = errors.New("source file not found")

// SourceLocator provides the text of source files.
type SourceLocator interface {
	// Source returns the text of fileName in package pkg.
	Source(pkg, fileName string) (string, error)
	// TabWidth returns the number of blanks a tab expands to.
	TabWidth() int
}

// NoSources is a locator without any source files.
type NoSources struct{}

// Source implements SourceLocator.
func (NoSources) Source(pkg, fileName string) (string, error) {
	return "", errors.Wrapf(ErrMissingSource, "%s", path.Join(pkg, fileName))
}

// TabWidth implements SourceLocator.
func (NoSources) TabWidth() int { return DefaultTabWidth }

// DirectorySourceLocator looks up source files below a list of root
// directories, decoding them with a configured encoding. Loaded sources are
// kept in a bounded cache.
type DirectorySourceLocator struct {
	roots    []string
	tabWidth int
	decoding encoding.Encoding
	cache    otter.Cache[string, string]
}

// NewDirectorySourceLocator creates a locator searching roots in order. An
// empty encodingName means UTF-8; tabWidth <= 0 means DefaultTabWidth.
func NewDirectorySourceLocator(roots []string, encodingName string, tabWidth int) (*DirectorySourceLocator, error) {
	enc := encoding.Encoding(unicode.UTF8)
	if encodingName != "" {
		var err error
		enc, err = htmlindex.Get(encodingName)
		if err != nil {
			return nil, errors.Wrapf(err, "unsupported source encoding %q", encodingName)
		}
	}
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	cache, err := otter.MustBuilder[string, string](1024).
		Cost(func(key string, value string) uint32 {
			return uint32(len(value)/4096) + 1
		}).
		Build()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create source cache")
	}
	return &DirectorySourceLocator{roots: roots, tabWidth: tabWidth, decoding: enc, cache: cache}, nil
}

// Source implements SourceLocator.
func (l *DirectorySourceLocator) Source(pkg, fileName string) (string, error) {
	rel := path.Join(pkg, fileName)
	if text, ok := l.cache.Get(rel); ok {
		return text, nil
	}
	for _, root := range l.roots {
		raw, err := ioutil.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "unable to read %s", rel)
		}
		decoded, err := l.decoding.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.Wrapf(err, "unable to decode %s", rel)
		}
		text := string(decoded)
		l.cache.Set(rel, text)
		return text, nil
	}
	logger.Debugf("no source for %s", rel)
	return "", errors.Wrapf(ErrMissingSource, "%s", rel)
}

// TabWidth implements SourceLocator.
func (l *DirectorySourceLocator) TabWidth() int { return l.tabWidth }

// Close releases the source cache.
func (l *DirectorySourceLocator) Close() {
	l.cache.Close()
}
