package data

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Dump is the document an execution collaborator hands over: the sessions it
// recorded and the probe hits collected during them.
type Dump struct {
	Sessions []SessionInfo     `json:"sessions"`
	Records  []ExecutionRecord `json:"records"`
}

// ReadDump decodes a JSON dump document.
func ReadDump(r io.Reader) (Dump, error) {
	dump := Dump{}
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return Dump{}, errors.Wrap(err, "unable to decode execution dump")
	}
	return dump, nil
}

// WriteDump encodes the dump as JSON.
func WriteDump(w io.Writer, dump Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}

// Merge adds the dump to the given stores. Records failing to merge are
// returned keyed by identity; the remaining records are still merged.
func (d Dump) Merge(store *Store, sessions *SessionInfoStore) map[ID]error {
	for _, s := range d.Sessions {
		sessions.Add(s)
	}
	return store.PutAll(d.Records)
}

// PackProbes packs probe flags into a bit set, least significant bit first.
func PackProbes(probes []bool) []byte {
	packed := make([]byte, (len(probes)+7)/8)
	for i, hit := range probes {
		if hit {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	return packed
}

// UnpackProbes restores count probe flags from a bit set produced by PackProbes.
func UnpackProbes(packed []byte, count int) ([]bool, error) {
	if count < 0 || len(packed) != (count+7)/8 {
		return nil, errors.Errorf("packed probes of %d bytes cannot hold %d probes", len(packed), count)
	}
	probes := make([]bool, count)
	for i := range probes {
		probes[i] = packed[i/8]&(1<<uint(i%8)) != 0
	}
	return probes, nil
}
