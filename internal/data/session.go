package data

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionInfo describes one recorded execution run. It is provenance only and
// never takes part in counter arithmetic.
type SessionInfo struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	Dump  time.Time `json:"dump"`
}

// NewSessionInfo creates a session started at start and dumped at dump with an
// id made of the host name and a random suffix.
func NewSessionInfo(start, dump time.Time) SessionInfo {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return SessionInfo{ID: host + "-" + uuid.New().String()[:8], Start: start, Dump: dump}
}

// SessionInfoStore collects session infos. It is safe for concurrent use.
type SessionInfoStore struct {
	mu    sync.Mutex
	infos []SessionInfo
}

// NewSessionInfoStore creates an empty store.
func NewSessionInfoStore() *SessionInfoStore {
	return &SessionInfoStore{}
}

// Add appends a session info.
func (s *SessionInfoStore) Add(info SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, info)
}

// IsEmpty reports whether no session was added.
func (s *SessionInfoStore) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.infos) == 0
}

// Infos returns all session infos ordered by start time, then id.
func (s *SessionInfoStore) Infos() []SessionInfo {
	s.mu.Lock()
	infos := make([]SessionInfo, len(s.infos))
	copy(infos, s.infos)
	s.mu.Unlock()

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].Start.Equal(infos[j].Start) {
			return infos[i].Start.Before(infos[j].Start)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Merged returns a single session with the given id spanning the earliest
// start and the latest dump of all sessions. Without sessions both times are zero.
func (s *SessionInfoStore) Merged(id string) SessionInfo {
	merged := SessionInfo{ID: id}
	for i, info := range s.Infos() {
		if i == 0 || info.Start.Before(merged.Start) {
			merged.Start = info.Start
		}
		if info.Dump.After(merged.Dump) {
			merged.Dump = info.Dump
		}
	}
	return merged
}
