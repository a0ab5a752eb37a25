package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jenkins-x-apps/jacoco-go/internal/data"
	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// Schema of the execution data file. Call Store.Init() or apply manually.
const Schema = `
CREATE TABLE IF NOT EXISTS execution_data (
	class_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	probe_count INTEGER NOT NULL,
	probes BLOB NOT NULL,
	PRIMARY KEY (class_id, name)
);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	start_ms INTEGER NOT NULL,
	dump_ms INTEGER NOT NULL
);
`

var logger = logging.AppLogger().WithFields(log.Fields{"component": "storage"})

// Store persists merged execution data and session infos in a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	// a single connection keeps in-memory databases alive and serializes writers
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the tables if they don't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return errors.Wrap(err, "unable to apply schema")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save merges records and sessions into the database within one transaction.
// A record is merged with the stored record of the same identity by OR-ing
// probes. Records whose probe count differs from the stored one are not
// written and returned keyed by identity, wrapping data.ErrStructureMismatch.
func (s *Store) Save(ctx context.Context, records []data.ExecutionRecord, sessions []data.SessionInfo) (map[data.ID]error, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to begin transaction")
	}
	defer tx.Rollback()

	failed := map[data.ID]error{}
	for _, r := range records {
		err := saveRecord(ctx, tx, r)
		if errors.Cause(err) == data.ErrStructureMismatch {
			logger.Warnf("not saving %s: %s", r.ID, err)
			failed[r.ID] = err
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	for _, info := range sessions {
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sessions (id, start_ms, dump_ms) VALUES (?, ?, ?)`,
			info.ID, millis(info.Start), millis(info.Dump))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to save session %s", info.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "unable to commit")
	}
	logger.Debugf("saved %d records and %d sessions", len(records)-len(failed), len(sessions))
	return failed, nil
}

func saveRecord(ctx context.Context, tx *sql.Tx, r data.ExecutionRecord) error {
	var (
		count  int
		packed []byte
	)
	classID := int64(r.ID.ClassID)
	err := tx.QueryRowContext(ctx, `SELECT probe_count, probes FROM execution_data WHERE class_id = ? AND name = ?`,
		classID, r.ID.Name).Scan(&count, &packed)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `INSERT INTO execution_data (class_id, name, probe_count, probes) VALUES (?, ?, ?, ?)`,
			classID, r.ID.Name, len(r.Probes), data.PackProbes(r.Probes))
		return errors.Wrapf(err, "unable to insert %s", r.ID)
	case err != nil:
		return errors.Wrapf(err, "unable to read %s", r.ID)
	}

	if count != len(r.Probes) {
		return errors.Wrapf(data.ErrStructureMismatch, "%s: stored %d probes, got %d", r.ID, count, len(r.Probes))
	}
	stored, err := data.UnpackProbes(packed, count)
	if err != nil {
		return errors.Wrapf(err, "corrupt probes for %s", r.ID)
	}
	for i, hit := range r.Probes {
		stored[i] = stored[i] || hit
	}
	_, err = tx.ExecContext(ctx, `UPDATE execution_data SET probes = ? WHERE class_id = ? AND name = ?`,
		data.PackProbes(stored), classID, r.ID.Name)
	return errors.Wrapf(err, "unable to update %s", r.ID)
}

// Load reads all stored records and sessions into store and sessions.
// Records conflicting with records already in store are returned keyed by identity.
func (s *Store) Load(ctx context.Context, store *data.Store, sessions *data.SessionInfoStore) (map[data.ID]error, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT class_id, name, probe_count, probes FROM execution_data ORDER BY name, class_id`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to query execution data")
	}
	var records []data.ExecutionRecord
	for rows.Next() {
		var (
			classID int64
			name    string
			count   int
			packed  []byte
		)
		if err := rows.Scan(&classID, &name, &count, &packed); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "unable to scan execution data")
		}
		probes, err := data.UnpackProbes(packed, count)
		if err != nil {
			rows.Close()
			return nil, errors.Wrapf(err, "corrupt probes for %s", name)
		}
		records = append(records, data.ExecutionRecord{ID: data.ID{ClassID: uint64(classID), Name: name}, Probes: probes})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "unable to read execution data")
	}
	rows.Close()

	srows, err := s.db.QueryContext(ctx, `SELECT id, start_ms, dump_ms FROM sessions ORDER BY start_ms, id`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to query sessions")
	}
	defer srows.Close()
	for srows.Next() {
		var (
			id          string
			start, dump int64
		)
		if err := srows.Scan(&id, &start, &dump); err != nil {
			return nil, errors.Wrap(err, "unable to scan sessions")
		}
		sessions.Add(data.SessionInfo{ID: id, Start: fromMillis(start), Dump: fromMillis(dump)})
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return store.PutAll(records), nil
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func fromMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}
