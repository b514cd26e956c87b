// Package store persists server state to disk as JSON so a restart can pick
// up where the process left off: session records, the process-wide audit
// log, and the process-wide fault table.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"swiftmock/internal/audit"
	"swiftmock/internal/faults"
	"swiftmock/internal/session"
)

// Document is the complete on-disk snapshot written by Save and read back
// by Load. Entries and FaultState are process-wide, shared by every
// session, not scoped to any one of them. Unknown keys in an existing file
// are tolerated by plain json.Unmarshal so a future field addition doesn't
// break older state files.
type Document struct {
	MessageCount int              `json:"message_count"`
	Sessions     []session.Record `json:"sessions"`
	Entries      []audit.Entry    `json:"message_log"`
	FaultState   faults.Snapshot  `json:"fault_state"`
}

// Store reads and writes a Document at a fixed path on disk.
type Store struct {
	path string
}

// New builds a Store backed by the file at path. The parent directory is
// created if it doesn't already exist.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create state directory %s", dir)
		}
	}
	return &Store{path: path}, nil
}

// Load reads the Document from disk. A missing file is not an error: it
// returns an empty Document, matching a server's first-ever run.
func (s *Store) Load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, errors.Wrapf(err, "read state file %s", s.path)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, errors.Wrapf(err, "decode state file %s", s.path)
	}

	if len(doc.Entries) > audit.Capacity {
		doc.Entries = doc.Entries[len(doc.Entries)-audit.Capacity:]
	}
	return doc, nil
}

// Save writes doc to disk atomically: it writes to a temp file in the same
// directory and renames it over the target, so a crash mid-write never
// leaves a truncated state file behind.
func (s *Store) Save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state document")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp state file in %s", dir)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "write temp state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "close temp state file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "rename temp state file to %s", s.path)
	}
	return nil
}

// SnapshotRegistry builds a Document from r's current sessions plus its
// process-wide audit log and fault table.
func SnapshotRegistry(r *session.Registry) Document {
	sessions := r.All()
	doc := Document{
		MessageCount: r.MessageCount(),
		Sessions:     make([]session.Record, 0, len(sessions)),
		Entries:      r.Log.All(),
		FaultState:   r.Faults.Snapshot(),
	}
	for _, sess := range sessions {
		doc.Sessions = append(doc.Sessions, sess.Snapshot())
	}
	return doc
}
