package html

import (
	"sync"

	"github.com/jenkins-x-apps/jacoco-go/internal/data"
)

// ElementIndex remembers the page of every rendered class so other pages can
// link to it. Paths are relative to the report root.
type ElementIndex struct {
	mu    sync.RWMutex
	pages map[data.ID]string
}

// NewElementIndex creates an empty index.
func NewElementIndex() *ElementIndex {
	return &ElementIndex{pages: map[data.ID]string{}}
}

// Add records the page of a class. The first page added for an identity wins.
func (i *ElementIndex) Add(id data.ID, page string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.pages[id]; !ok {
		i.pages[id] = page
	}
}

// Link returns the page of a class, if it was rendered.
func (i *ElementIndex) Link(id data.ID) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	page, ok := i.pages[id]
	return page, ok
}

// Len returns the number of indexed classes.
func (i *ElementIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.pages)
}
