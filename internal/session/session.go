// Package session tracks per-connection protocol state and the decision
// table that turns an inbound message into a response.
package session

import (
	"fmt"
	"net"
	"sync"
	"time"

	"swiftmock/internal/audit"
	"swiftmock/internal/faults"
)

// State is the session's position in the connection lifecycle.
type State int

const (
	StateHandshaking State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func stateFromString(s string) State {
	switch s {
	case "active":
		return StateActive
	case "closed":
		return StateClosed
	default:
		return StateHandshaking
	}
}

// Key derives a session id from a remote endpoint's "ip:port" address, so
// a client reconnecting from the same endpoint maps back onto the same
// session instead of a fresh random one.
func Key(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("SESSION-%s", addr)
	}
	return fmt.Sprintf("SESSION-%s-%s", host, port)
}

// Session is one connection's mutable protocol state: its sequence
// counters and lifecycle state. Once registered with a Registry, Faults and
// Log point at the process-wide tables shared by every session. All
// other fields are guarded by mu; callers never touch them directly.
type Session struct {
	mu sync.Mutex

	ID   string
	Addr string

	state        State
	inputSeq     int
	outputSeq    int
	lastActivity time.Time
	messageCount int

	Faults *faults.Table
	Log    *audit.Log
}

// New creates a fresh session keyed by addr, in the Handshaking state with
// sequence counters at zero. Faults and Log start out as standalone
// instances so a Session is usable on its own (as in unit tests); a
// Registry overwrites both with its shared process-wide tables when the
// session is registered via GetOrCreate or Restore.
func New(addr string) *Session {
	return &Session{
		ID:           Key(addr),
		Addr:         addr,
		state:        StateHandshaking,
		lastActivity: time.Now(),
		Faults:       &faults.Table{},
		Log:          audit.New(),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to a new lifecycle state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// InputSeq returns the last accepted inbound sequence number.
func (s *Session) InputSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputSeq
}

// OutputSeq returns the last emitted outbound sequence number.
func (s *Session) OutputSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputSeq
}

// AdvanceInput records seq as the new input_seq. Callers only invoke this
// when the decision table actually accepts the message: R6's forced NACK
// still advances input_seq, but R3's trailer-validation NACK, R4's Resend,
// and R5's ignored-sequence skip never do.
func (s *Session) AdvanceInput(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputSeq = seq
	s.messageCount++
	s.lastActivity = time.Now()
}

// NextOutput increments and returns the next output_seq. output_seq
// advances on every response the server sends, ACK or NACK alike.
func (s *Session) NextOutput() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputSeq++
	return s.outputSeq
}

// Touch records activity without advancing input_seq, used for messages
// that are ignored or dropped rather than accepted.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// Record is a serializable, read-only snapshot of a session, used by both
// the control-plane status endpoint and disk persistence.
type Record struct {
	ID           string    `json:"id"`
	Addr         string    `json:"addr"`
	State        string    `json:"state"`
	InputSeq     int       `json:"input_seq"`
	OutputSeq    int       `json:"output_seq"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// Snapshot captures the session's current fields into a Record.
func (s *Session) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Record{
		ID:           s.ID,
		Addr:         s.Addr,
		State:        s.state.String(),
		InputSeq:     s.inputSeq,
		OutputSeq:    s.outputSeq,
		MessageCount: s.messageCount,
		LastActivity: s.lastActivity,
	}
}

// Restore rebuilds a Session from a previously persisted Record, used when
// reloading state on startup. The Registry wires in the shared Faults and
// Log after restoring.
func Restore(rec Record) *Session {
	return &Session{
		ID:           rec.ID,
		Addr:         rec.Addr,
		state:        stateFromString(rec.State),
		inputSeq:     rec.InputSeq,
		outputSeq:    rec.OutputSeq,
		messageCount: rec.MessageCount,
		lastActivity: rec.LastActivity,
	}
}

// Registry is the concurrency-safe collection of live sessions, keyed by
// session id, plus the process-wide fault table and audit log every
// session shares.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	Faults       *faults.Table
	Log          *audit.Log
	messageCount int
}

// NewRegistry builds an empty Registry with a fresh shared fault table and
// audit log.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		Faults:   &faults.Table{},
		Log:      audit.New(),
	}
}

// GetOrCreate returns the existing session for addr's endpoint, or creates
// and registers a new one, wiring in the shared Faults and Log.
func (r *Registry) GetOrCreate(addr string) *Session {
	id := Key(addr)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := New(addr)
	s.Faults = r.Faults
	s.Log = r.Log
	r.sessions[id] = s
	return s
}

// Restore re-inserts a session rebuilt from persisted state, wiring in the
// shared Faults and Log exactly as GetOrCreate does for a fresh session.
func (r *Registry) Restore(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Faults = r.Faults
	s.Log = r.Log
	r.sessions[s.ID] = s
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// All returns a snapshot slice of every live session, in no particular
// order.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IncrementMessageCount bumps the process-wide inbound message counter and
// returns its new value.
func (r *Registry) IncrementMessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messageCount++
	return r.messageCount
}

// MessageCount reports the process-wide inbound message counter.
func (r *Registry) MessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messageCount
}

// SetMessageCount installs the process-wide inbound message counter,
// used when restoring persisted state.
func (r *Registry) SetMessageCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messageCount = n
}

// ResetAll clears every session, the shared fault table, the shared audit
// log, and the message counter, matching a process-wide reset.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*Session)
	r.Faults.Reset()
	r.Log = audit.New()
	r.messageCount = 0
}
