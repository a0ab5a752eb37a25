package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idA   = data.ID{ClassID: 0xffffffffffffff01, Name: "org/example/A"}
	idB   = data.ID{ClassID: 2, Name: "org/example/B"}
	start = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
)

func open(t *testing.T) *Store {
	s, err := Open(":memory:")
	require.NoError(t, err)
	return s
}

func load(t *testing.T, s *Store) (*data.Store, *data.SessionInfoStore) {
	store := data.NewStore()
	sessions := data.NewSessionInfoStore()
	failed, err := s.Load(context.Background(), store, sessions)
	require.NoError(t, err)
	require.Empty(t, failed)
	return store, sessions
}

func TestSaveAndLoad(t *testing.T) {
	s := open(t)
	defer s.Close()

	sessions := []data.SessionInfo{{ID: "s1", Start: start, Dump: start.Add(time.Second)}}
	records := []data.ExecutionRecord{
		{ID: idA, Probes: []bool{true, false, false, false, false, false, false, false, true}},
		{ID: idB, Probes: []bool{}},
	}
	failed, err := s.Save(context.Background(), records, sessions)
	require.NoError(t, err)
	assert.Empty(t, failed)

	store, loadedSessions := load(t, s)
	a, ok := store.Get(idA)
	require.True(t, ok, "unsigned class ids survive the round trip")
	assert.Equal(t, records[0].Probes, a.Probes)
	b, ok := store.Get(idB)
	require.True(t, ok)
	assert.Empty(t, b.Probes)
	assert.Equal(t, sessions, loadedSessions.Infos())
}

func TestSaveMergesWithOr(t *testing.T) {
	s := open(t)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Save(ctx, []data.ExecutionRecord{{ID: idA, Probes: []bool{true, false, false}}}, nil)
	require.NoError(t, err)
	_, err = s.Save(ctx, []data.ExecutionRecord{{ID: idA, Probes: []bool{false, false, true}}}, nil)
	require.NoError(t, err)

	store, _ := load(t, s)
	a, _ := store.Get(idA)
	assert.Equal(t, []bool{true, false, true}, a.Probes)
}

func TestSaveReportsStructureMismatch(t *testing.T) {
	s := open(t)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Save(ctx, []data.ExecutionRecord{{ID: idA, Probes: []bool{true, false}}}, nil)
	require.NoError(t, err)
	failed, err := s.Save(ctx, []data.ExecutionRecord{
		{ID: idA, Probes: []bool{false, true, true}},
		{ID: idB, Probes: []bool{true}},
	}, nil)
	require.NoError(t, err)

	require.Len(t, failed, 1)
	assert.Equal(t, data.ErrStructureMismatch, errors.Cause(failed[idA]))

	store, _ := load(t, s)
	a, _ := store.Get(idA)
	assert.Equal(t, []bool{true, false}, a.Probes, "stored record must be unchanged")
	_, ok := store.Get(idB)
	assert.True(t, ok)
}

func TestSessionsAreSavedOnce(t *testing.T) {
	s := open(t)
	defer s.Close()
	ctx := context.Background()
	info := data.SessionInfo{ID: "s1", Start: start, Dump: start}

	_, err := s.Save(ctx, nil, []data.SessionInfo{info})
	require.NoError(t, err)
	_, err = s.Save(ctx, nil, []data.SessionInfo{info})
	require.NoError(t, err)

	_, sessions := load(t, s)
	assert.Len(t, sessions.Infos(), 1)
}

func TestLoadReportsConflictsWithMemory(t *testing.T) {
	s := open(t)
	defer s.Close()
	_, err := s.Save(context.Background(), []data.ExecutionRecord{{ID: idA, Probes: []bool{true}}}, nil)
	require.NoError(t, err)

	store := data.NewStore()
	require.NoError(t, store.Put(data.ExecutionRecord{ID: idA, Probes: []bool{false, false}}))
	failed, err := s.Load(context.Background(), store, data.NewSessionInfoStore())
	require.NoError(t, err)
	assert.Equal(t, data.ErrStructureMismatch, errors.Cause(failed[idA]))
}

func TestFileIsReopened(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "jacoco.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), []data.ExecutionRecord{{ID: idB, Probes: []bool{true, true}}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	store, _ := load(t, reopened)
	assert.Equal(t, 1, store.Len())
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	s := open(t)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, []data.ExecutionRecord{{ID: idA, Probes: []bool{true}}}, nil)
	assert.Error(t, err)
}
