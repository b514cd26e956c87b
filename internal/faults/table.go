// Package faults holds the mutable, process-wide fault-injection table
// every connection consults on every inbound message: a persistent error
// mode plus one-shot triggers that fire once and clear themselves.
package faults

import "sync"

// Mode selects the persistent behavior applied to every message until reset
// or replaced, distinct from the one-shot triggers below.
type Mode int

const (
	// ModeNone applies no persistent fault; messages are handled normally.
	ModeNone Mode = iota
	// ModeTimeout stops the session from ever responding.
	ModeTimeout
	// ModeLatency delays every response by LatencyMs before sending.
	ModeLatency
)

func (m Mode) String() string {
	switch m {
	case ModeTimeout:
		return "timeout"
	case ModeLatency:
		return "latency"
	default:
		return "none"
	}
}

// ParseMode maps a control-plane error_type string onto a Mode. An
// unrecognized string maps to ModeNone.
func ParseMode(s string) Mode {
	switch s {
	case "timeout":
		return ModeTimeout
	case "latency":
		return ModeLatency
	default:
		return ModeNone
	}
}

// Table is the process-wide fault-injection state, shared by every active
// connection. The zero value is ready to use.
type Table struct {
	mu sync.Mutex

	mode      Mode
	latencyMs int

	dropConnection bool
	nackNext       bool

	ignored map[int]struct{}
}

// SetErrorMode installs a persistent mode, replacing whatever was set
// before. latencyMs is only meaningful when mode is ModeLatency.
func (t *Table) SetErrorMode(mode Mode, latencyMs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	t.latencyMs = latencyMs
}

// SetDropConnection arms a one-shot trigger: the next inbound message
// closes the connection instead of being processed.
func (t *Table) SetDropConnection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropConnection = true
}

// SetNackNext arms a one-shot trigger: the next inbound message is NACKed
// regardless of its own validity.
func (t *Table) SetNackNext() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nackNext = true
}

// AddIgnoredSequences marks input sequence numbers to be silently skipped
// (no response, input_seq unchanged) the next time each is seen.
func (t *Table) AddIgnoredSequences(seqs ...int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ignored == nil {
		t.ignored = make(map[int]struct{})
	}
	for _, s := range seqs {
		t.ignored[s] = struct{}{}
	}
}

// Reset clears every persistent mode and one-shot trigger.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = ModeNone
	t.latencyMs = 0
	t.dropConnection = false
	t.nackNext = false
	t.ignored = nil
}

// ConsumeDropConnection reports and clears the drop-connection trigger.
func (t *Table) ConsumeDropConnection() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.dropConnection
	t.dropConnection = false
	return v
}

// ConsumeNackNext reports and clears the nack-next trigger.
func (t *Table) ConsumeNackNext() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.nackNext
	t.nackNext = false
	return v
}

// ContainsIgnored peeks whether seq is currently marked ignored, without
// consuming it.
func (t *Table) ContainsIgnored(seq int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ignored[seq]
	return ok
}

// ConsumeIgnored reports whether seq was marked ignored and, if so, removes
// it so it only fires once.
func (t *Table) ConsumeIgnored(seq int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ignored[seq]; !ok {
		return false
	}
	delete(t.ignored, seq)
	return true
}

// IsTimeoutMode reports whether the persistent mode is ModeTimeout.
func (t *Table) IsTimeoutMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode == ModeTimeout
}

// LatencyMs reports the configured latency when the persistent mode is
// ModeLatency, or zero otherwise.
func (t *Table) LatencyMs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != ModeLatency {
		return 0
	}
	return t.latencyMs
}

// Snapshot is a read-only view of the table for the control-plane status
// endpoint.
type Snapshot struct {
	Mode      string `json:"mode"`
	LatencyMs int    `json:"latency_ms"`
	Ignored   []int  `json:"ignored_sequences"`
}

// Snapshot returns a copy of the table's current state.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{Mode: t.mode.String(), LatencyMs: t.latencyMs}
	for seq := range t.ignored {
		s.Ignored = append(s.Ignored, seq)
	}
	return s
}

// Restore replaces the table's persistent state (mode, latency, and
// pending ignored sequences) from a prior Snapshot, used when reloading
// state on startup. One-shot triggers are never persisted, so they are
// left untouched.
func (t *Table) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = ParseMode(snap.Mode)
	t.latencyMs = snap.LatencyMs
	if len(snap.Ignored) == 0 {
		t.ignored = nil
		return
	}
	t.ignored = make(map[int]struct{}, len(snap.Ignored))
	for _, seq := range snap.Ignored {
		t.ignored[seq] = struct{}{}
	}
}
