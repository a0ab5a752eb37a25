package analysis

import (
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Filter accepts class names matching at least one include pattern and no
// exclude pattern. Without include patterns every class is included. Patterns
// use '/' as separator, '*' stays within a package and '**' crosses packages.
type Filter struct {
	includes []glob.Glob
	excludes []glob.Glob
}

// NewFilter compiles the include and exclude patterns.
func NewFilter(includes, excludes []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.includes, err = compile(includes); err != nil {
		return nil, err
	}
	if f.excludes, err = compile(excludes); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid class pattern '%s'", p)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Accept reports whether the class with the given VM name passes the filter.
func (f *Filter) Accept(name string) bool {
	included := len(f.includes) == 0
	for _, g := range f.includes {
		if g.Match(name) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, g := range f.excludes {
		if g.Match(name) {
			return false
		}
	}
	return true
}
