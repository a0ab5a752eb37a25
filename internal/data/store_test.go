package data

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idX = ID{ClassID: 0x1234, Name: "org/example/X"}

func record(id ID, probes ...bool) ExecutionRecord {
	return ExecutionRecord{ID: id, Probes: probes}
}

func TestPutMergesWithOr(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Put(record(idX, true, false, false)))
	require.NoError(t, store.Put(record(idX, false, false, true)))

	actual, ok := store.Get(idX)
	require.True(t, ok)
	assert.Equal(t, []bool{true, false, true}, actual.Probes)
}

func TestPutIsIdempotent(t *testing.T) {
	once := NewStore()
	twice := NewStore()
	r := record(idX, true, false, true)

	require.NoError(t, once.Put(r))
	require.NoError(t, twice.Put(r))
	require.NoError(t, twice.Put(r))

	assert.Equal(t, once.All(), twice.All())
}

func TestPutIsCommutative(t *testing.T) {
	a := record(idX, true, false, false, true)
	b := record(idX, false, true, false, true)

	ab := NewStore()
	require.NoError(t, ab.Put(a))
	require.NoError(t, ab.Put(b))
	ba := NewStore()
	require.NoError(t, ba.Put(b))
	require.NoError(t, ba.Put(a))

	assert.Equal(t, ab.All(), ba.All())
}

func TestPutWithDifferentLengthFails(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Put(record(idX, true, false, false)))

	err := store.Put(record(idX, false, true, true, true))
	require.Error(t, err)
	assert.Equal(t, ErrStructureMismatch, errors.Cause(err))

	actual, _ := store.Get(idX)
	assert.Equal(t, []bool{true, false, false}, actual.Probes, "stored record must be unchanged")
}

func TestStoreDoesNotAliasCallerSlices(t *testing.T) {
	store := NewStore()
	probes := []bool{false, false}
	require.NoError(t, store.Put(record(idX, probes...)))
	probes[0] = true

	actual, _ := store.Get(idX)
	assert.Equal(t, []bool{false, false}, actual.Probes)

	actual.Probes[1] = true
	again, _ := store.Get(idX)
	assert.Equal(t, []bool{false, false}, again.Probes)
}

func TestGetUnknownIdentity(t *testing.T) {
	store := NewStore()
	_, ok := store.Get(idX)
	assert.False(t, ok)
	assert.False(t, store.ContainsName(idX.Name))
}

func TestContainsNameIgnoresClassID(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Put(record(ID{ClassID: 1, Name: "a/B"}, true)))
	assert.True(t, store.ContainsName("a/B"))
	_, ok := store.Get(ID{ClassID: 2, Name: "a/B"})
	assert.False(t, ok)
}

func TestResetKeepsIdentities(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Put(record(idX, true, true)))
	store.Reset()

	actual, ok := store.Get(idX)
	require.True(t, ok)
	assert.False(t, actual.HasHits())
	assert.Equal(t, 1, store.Len())
}

func TestConcurrentPuts(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			probes := make([]bool, 64)
			probes[i] = true
			assert.NoError(t, store.Put(record(idX, probes...)))
			assert.NoError(t, store.Put(record(ID{ClassID: uint64(i), Name: fmt.Sprintf("c/%d", i)}, true)))
		}(i)
	}
	wg.Wait()

	actual, _ := store.Get(idX)
	for i, hit := range actual.Probes {
		assert.True(t, hit, "probe %d", i)
	}
	assert.Equal(t, 65, store.Len())
}

func TestPutAllReportsFailures(t *testing.T) {
	store := NewStore()
	other := ID{ClassID: 9, Name: "a/Y"}
	failed := store.PutAll([]ExecutionRecord{record(idX, true), record(other, true), record(idX, true, true)})

	assert.Len(t, failed, 1)
	assert.Equal(t, ErrStructureMismatch, errors.Cause(failed[idX]))
	assert.Equal(t, 2, store.Len())
}

func TestSessionInfoStore(t *testing.T) {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	sessions := NewSessionInfoStore()
	assert.True(t, sessions.IsEmpty())

	sessions.Add(SessionInfo{ID: "b", Start: base.Add(time.Hour), Dump: base.Add(3 * time.Hour)})
	sessions.Add(SessionInfo{ID: "a", Start: base, Dump: base.Add(time.Minute)})

	infos := sessions.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].ID)

	merged := sessions.Merged("merged")
	assert.Equal(t, "merged", merged.ID)
	assert.Equal(t, base, merged.Start)
	assert.Equal(t, base.Add(3*time.Hour), merged.Dump)
}

func TestNewSessionInfoHasID(t *testing.T) {
	now := time.Now()
	a := NewSessionInfo(now, now)
	b := NewSessionInfo(now, now)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPackProbes(t *testing.T) {
	var testCases = [][]bool{
		{},
		{true},
		{false, true, false, false, false, false, false, false, true},
		{true, true, true, true, true, true, true, true},
	}

	for _, probes := range testCases {
		packed := PackProbes(probes)
		assert.Len(t, packed, (len(probes)+7)/8)
		unpacked, err := UnpackProbes(packed, len(probes))
		assert.NoError(t, err)
		assert.Equal(t, probes, unpacked)
	}

	_, err := UnpackProbes([]byte{1}, 9)
	assert.Error(t, err)
}

func TestDumpMerge(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	dump := Dump{
		Sessions: []SessionInfo{{ID: "s1", Start: start, Dump: start.Add(time.Second)}},
		Records:  []ExecutionRecord{record(idX, true, false)},
	}
	require.NoError(t, WriteDump(&buf, dump))

	decoded, err := ReadDump(&buf)
	require.NoError(t, err)

	store := NewStore()
	sessions := NewSessionInfoStore()
	assert.Empty(t, decoded.Merge(store, sessions))
	assert.Equal(t, []SessionInfo{{ID: "s1", Start: start, Dump: start.Add(time.Second)}}, sessions.Infos())
	actual, ok := store.Get(idX)
	require.True(t, ok)
	assert.Equal(t, []bool{true, false}, actual.Probes)
}

func TestReadDumpRejectsGarbage(t *testing.T) {
	_, err := ReadDump(bytes.NewBufferString("not json"))
	assert.Error(t, err)
}
