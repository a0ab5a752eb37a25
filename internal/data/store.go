package data

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrStructureMismatch is returned when a record disagrees in length with a
// previously stored record of the same identity. The unit was instrumented
// differently across runs and the two records cannot be merged.
var ErrStructureMismatch = errors.New("structure mismatch")

// ID identifies the structural unit a record belongs to.
type ID struct {
	ClassID uint64 `json:"id"`
	Name    string `json:"name"`
}

func (id ID) String() string {
	return fmt.Sprintf("%s(%016x)", id.Name, id.ClassID)
}

// ExecutionRecord holds the probe hits of one unit.
type ExecutionRecord struct {
	ID     ID     `json:"identity"`
	Probes []bool `json:"probes"`
}

// NewExecutionRecord creates a record with all probes unset.
func NewExecutionRecord(id ID, probeCount int) ExecutionRecord {
	return ExecutionRecord{ID: id, Probes: make([]bool, probeCount)}
}

// HasHits reports whether at least one probe was hit.
func (r ExecutionRecord) HasHits() bool {
	for _, p := range r.Probes {
		if p {
			return true
		}
	}
	return false
}

func (r ExecutionRecord) clone() ExecutionRecord {
	probes := make([]bool, len(r.Probes))
	copy(probes, r.Probes)
	return ExecutionRecord{ID: r.ID, Probes: probes}
}

type entry struct {
	mu     sync.Mutex
	record ExecutionRecord
}

// Store is a keyed collection of execution records. Records for the same
// identity are merged with a logical OR. Store is safe for concurrent use;
// puts on one identity are serialized, puts on different identities are not.
type Store struct {
	mu      sync.RWMutex
	entries map[ID]*entry
	names   map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: map[ID]*entry{}, names: map[string]int{}}
}

// Put stores the record or merges it into the record already stored for its
// identity. A length mismatch fails with ErrStructureMismatch and leaves the
// stored record unchanged.
func (s *Store) Put(record ExecutionRecord) error {
	e, created := s.entryFor(record)
	if created {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.record.Probes) != len(record.Probes) {
		return errors.Wrapf(ErrStructureMismatch, "%s: stored %d probes, got %d", record.ID, len(e.record.Probes), len(record.Probes))
	}
	for i, hit := range record.Probes {
		if hit {
			e.record.Probes[i] = true
		}
	}
	return nil
}

func (s *Store) entryFor(record ExecutionRecord) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[record.ID]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[record.ID]; ok {
		return e, false
	}
	s.entries[record.ID] = &entry{record: record.clone()}
	s.names[record.ID.Name]++
	return nil, true
}

// Get returns a copy of the record stored for id.
func (s *Store) Get(id ID) (ExecutionRecord, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return ExecutionRecord{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.clone(), true
}

// ContainsName reports whether any record is stored under the given name.
func (s *Store) ContainsName(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[name] > 0
}

// All returns copies of all records sorted by name and class id.
func (s *Store) All() []ExecutionRecord {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	records := make([]ExecutionRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		records = append(records, e.record.clone())
		e.mu.Unlock()
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ID.Name != records[j].ID.Name {
			return records[i].ID.Name < records[j].ID.Name
		}
		return records[i].ID.ClassID < records[j].ID.ClassID
	})
	return records
}

// Len returns the number of stored identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset clears all probe hits but keeps the known identities.
func (s *Store) Reset() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		e.mu.Lock()
		for i := range e.record.Probes {
			e.record.Probes[i] = false
		}
		e.mu.Unlock()
	}
}

// PutAll merges all records and returns the identities that failed together with their errors.
func (s *Store) PutAll(records []ExecutionRecord) map[ID]error {
	failed := map[ID]error{}
	for _, r := range records {
		if err := s.Put(r); err != nil {
			failed[r.ID] = err
		}
	}
	return failed
}
