// Package state persists the per-table bookkeeping that lets sheetsync skip
// redundant passes and suppress echoes.
package state

import (
	"encoding/json"
	"time"
)

// Record is the last known sync outcome for one table.
//
// DBFingerprint is empty after a sheet_to_table pass: the table's projected
// fingerprint is only computed when the table is the source.
type Record struct {
	DBFingerprint    string    `json:"last_db_fingerprint"`
	SheetFingerprint string    `json:"last_sheet_fingerprint"`
	LastSync         time.Time `json:"last_sync_timestamp"`
	Direction        Direction `json:"last_direction"`
}

// Since returns how long ago the record was committed, relative to now.
// A zero LastSync yields a negative duration so callers never mistake a
// fresh record for a recent one.
func (r Record) Since(now time.Time) time.Duration {
	if r.LastSync.IsZero() {
		return -1
	}
	return now.Sub(r.LastSync)
}

// UnmarshalJSON accepts legacy direction names in older state files.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Direction != "" && !p.Direction.Valid() {
		if d, err := ParseDirection(string(p.Direction)); err == nil {
			p.Direction = d
		}
	}
	*r = Record(p)
	return nil
}

// Store loads and saves the full table->Record mapping.
//
// Update performs an atomic read-modify-write of a single table's record.
// fn receives the current record and whether it existed; its returned record
// replaces the entry. If fn returns an error nothing is written.
type Store interface {
	Load() (map[string]Record, error)
	Save(records map[string]Record) error
	Update(table string, fn func(rec Record, ok bool) (Record, error)) error
}

// Get is a convenience for reading a single table's record from s.
func Get(s Store, table string) (Record, bool, error) {
	records, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := records[table]
	return rec, ok, nil
}

// Put writes a single record through Update.
func Put(s Store, table string, rec Record) error {
	return s.Update(table, func(Record, bool) (Record, error) {
		return rec, nil
	})
}
