package analysis

import (
	"sort"
	"strings"
	"sync"

	"github.com/jenkins-x-apps/jacoco-go/internal/coverage"
	"github.com/pkg/errors"
)

// DefaultPackage is the package of classes without a valid package path.
const DefaultPackage = coverage.DefaultPackage

// ErrDuplicateClass is returned when two different classes with the same name are added.
var ErrDuplicateClass = errors.New("different class with same name")

type packageEntry struct {
	mu      sync.Mutex
	classes map[string]*coverage.Node
}

// CoverageBuilder aggregates class nodes into packages and bundles. AddClass
// may be called from several goroutines; updates to one package are serialized.
type CoverageBuilder struct {
	mu       sync.Mutex
	packages map[string]*packageEntry
}

// NewCoverageBuilder creates an empty builder.
func NewCoverageBuilder() *CoverageBuilder {
	return &CoverageBuilder{packages: map[string]*packageEntry{}}
}

// PackagePath normalizes a declared package path. Empty or invalid paths map to DefaultPackage.
func PackagePath(declared string) string {
	p := strings.Trim(strings.TrimSpace(declared), "/")
	if p == "" || strings.Contains(p, "//") || strings.ContainsAny(p, " \t\r\n") {
		return DefaultPackage
	}
	return p
}

func (b *CoverageBuilder) entry(pkg string) *packageEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.packages[pkg]
	if !ok {
		e = &packageEntry{classes: map[string]*coverage.Node{}}
		b.packages[pkg] = e
	}
	return e
}

// AddClass adds a class node to its package. A class with the same identity
// already present is merged by summing counters. A different class with the
// same name fails with ErrDuplicateClass.
func (b *CoverageBuilder) AddClass(class *coverage.Node) error {
	if class.Kind() != coverage.KindClass {
		return errors.Errorf("%s is not a class", class)
	}
	e := b.entry(PackagePath(class.PackageName()))

	e.mu.Lock()
	defer e.mu.Unlock()
	existing, ok := e.classes[class.Name()]
	if !ok {
		e.classes[class.Name()] = class
		return nil
	}
	if existing.ID() != class.ID() {
		return errors.Wrapf(ErrDuplicateClass, "%s: %016x and %016x", class.Name(), existing.ID(), class.ID())
	}
	e.classes[class.Name()] = coverage.MergeClass(existing, class)
	return nil
}

// Classes returns all class nodes sorted by name.
func (b *CoverageBuilder) Classes() []*coverage.Node {
	var classes []*coverage.Node
	for _, p := range b.Packages() {
		classes = append(classes, p.Children()...)
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Name() < classes[j].Name() })
	return classes
}

// Packages returns the package nodes sorted by name.
func (b *CoverageBuilder) Packages() []*coverage.Node {
	b.mu.Lock()
	names := make([]string, 0, len(b.packages))
	entries := make(map[string]*packageEntry, len(b.packages))
	for name, e := range b.packages {
		names = append(names, name)
		entries[name] = e
	}
	b.mu.Unlock()
	sort.Strings(names)

	packages := make([]*coverage.Node, 0, len(names))
	for _, name := range names {
		e := entries[name]
		e.mu.Lock()
		classes := make([]*coverage.Node, 0, len(e.classes))
		for _, c := range e.classes {
			classes = append(classes, c)
		}
		e.mu.Unlock()
		packages = append(packages, coverage.NewPackage(name, classes))
	}
	return packages
}

// Bundle returns a bundle node with the given name holding all packages.
func (b *CoverageBuilder) Bundle(name string) *coverage.Node {
	return coverage.NewBundle(name, b.Packages())
}
