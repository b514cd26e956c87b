// Package audit keeps a bounded, insertion-ordered record of every message a
// session has sent or received, for the control plane's message inspection
// endpoints. It is bounded at N=1000 entries: once full, appending evicts
// the oldest entry first, exactly like a FIFO ring buffer.
package audit

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Capacity is the maximum number of entries a Log retains.
const Capacity = 1000

// Direction distinguishes an inbound message from an outbound response.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Entry is one audit record: a message id, its direction, the raw text, and
// the sequence number it was processed under. Duplicate is set on an
// inbound entry whose sequence number was already accepted, so a retried
// message stays visible in the trail without advancing input_seq again.
type Entry struct {
	ID        int       `json:"id"`
	Direction Direction `json:"direction"`
	Raw       string    `json:"raw"`
	Sequence  int       `json:"sequence"`
	Duplicate bool      `json:"duplicate,omitempty"`
}

// Log is a bounded, ordered message audit trail. The zero value is not
// usable; construct with New.
type Log struct {
	cache  *lru.Cache[int, Entry]
	nextID int
}

// New builds a Log capped at Capacity entries.
func New() *Log {
	c, _ := lru.New[int, Entry](Capacity)
	return &Log{cache: c}
}

// Append records a new entry, assigning it the next monotonic id. When the
// log is already at Capacity, the oldest entry is evicted first.
func (l *Log) Append(dir Direction, raw string, sequence int) Entry {
	return l.append(dir, raw, sequence, false)
}

// AppendDuplicate records an inbound entry whose sequence number was
// already accepted, tagging it so a retried message stays distinguishable
// in the trail from a new one.
func (l *Log) AppendDuplicate(dir Direction, raw string, sequence int) Entry {
	return l.append(dir, raw, sequence, true)
}

func (l *Log) append(dir Direction, raw string, sequence int, duplicate bool) Entry {
	e := Entry{ID: l.nextID, Direction: dir, Raw: raw, Sequence: sequence, Duplicate: duplicate}
	l.nextID++
	l.cache.Add(e.ID, e)
	return e
}

// Count reports how many entries are currently retained.
func (l *Log) Count() int {
	return l.cache.Len()
}

// All returns every retained entry, oldest first.
func (l *Log) All() []Entry {
	keys := l.cache.Keys()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := l.cache.Peek(k); ok {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns at most n entries, oldest first among that window, ending
// at the most recently appended entry.
func (l *Log) Recent(n int) []Entry {
	all := l.All()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Lookup finds the entry with the given id, if it hasn't been evicted.
func (l *Log) Lookup(id int) (Entry, bool) {
	return l.cache.Peek(id)
}

// LoadAll rebuilds the log from a previously persisted, oldest-first slice
// of entries, used when restoring state from disk. Entries beyond Capacity
// are dropped from the front, matching the original truncate-on-load
// behavior.
func LoadAll(entries []Entry) *Log {
	l := New()
	start := 0
	if len(entries) > Capacity {
		start = len(entries) - Capacity
	}
	maxID := -1
	for _, e := range entries[start:] {
		l.cache.Add(e.ID, e)
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	l.nextID = maxID + 1
	return l
}
