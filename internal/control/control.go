// Package control exposes the mock server's fault-injection and inspection
// surface over HTTP: status, recent messages, fault injection, and reset.
package control

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"swiftmock/internal/audit"
	"swiftmock/internal/faults"
	"swiftmock/internal/session"
	"swiftmock/internal/store"
)

// Status is the JSON body returned from GET /status: session records plus
// the process-wide fault and message state every connection shares.
type Status struct {
	SessionCount     int              `json:"session_count"`
	Sessions         []session.Record `json:"sessions"`
	ErrorMode        string           `json:"error_mode"`
	IgnoredSequences []int            `json:"ignored_sequences"`
	MessageCount     int              `json:"message_count"`
	RecentMessages   []audit.Entry    `json:"recent_messages"`
}

// injectRequest is the JSON body accepted by POST /inject-error. Faults are
// process-wide, so no session id is accepted or required: the documented
// adversarial test harness posts {error_type, ...} against a server that
// may not yet have accepted the connection the fault is meant for.
type injectRequest struct {
	ErrorType string `json:"error_type"`
	LatencyMs int    `json:"latency_ms"`
	Sequences []int  `json:"sequences"`
}

// Hook wires the Registry into an HTTP router. It holds no state beyond
// what it needs to look things up; the registry remains the source of
// truth. Store is optional: when set, every mutation that changes
// persisted state is written to disk immediately.
type Hook struct {
	Registry *session.Registry
	Store    *store.Store
	Log      *logrus.Entry
}

// Routes builds a chi.Router exposing this hook's four operations.
func (h *Hook) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.handleStatus)
	r.Get("/messages", h.handleMessages)
	r.Post("/inject-error", h.handleInjectError)
	r.Post("/reset", h.handleReset)
	return r
}

func (h *Hook) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessions := h.Registry.All()
	records := make([]session.Record, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, s.Snapshot())
	}
	snap := h.Registry.Faults.Snapshot()
	writeJSON(w, http.StatusOK, Status{
		SessionCount:     len(records),
		Sessions:         records,
		ErrorMode:        snap.Mode,
		IgnoredSequences: snap.Ignored,
		MessageCount:     h.Registry.MessageCount(),
		RecentMessages:   h.Registry.Log.Recent(50),
	})
}

// handleMessages returns the process-wide audit trail. A ?id= query
// parameter looks up a single message by id (lookup_message); without it,
// the 50 most recent entries are returned.
func (h *Hook) handleMessages(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "id must be an integer", http.StatusBadRequest)
			return
		}
		entry, ok := h.Registry.Log.Lookup(id)
		if !ok {
			http.Error(w, "unknown message id", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, entry)
		return
	}
	writeJSON(w, http.StatusOK, h.Registry.Log.Recent(50))
}

func (h *Hook) handleInjectError(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	switch req.ErrorType {
	case "drop_connection":
		h.Registry.Faults.SetDropConnection()
	case "nack_next":
		h.Registry.Faults.SetNackNext()
	case "ignore_sequence":
		h.Registry.Faults.AddIgnoredSequences(req.Sequences...)
	case "timeout", "latency", "none":
		h.Registry.Faults.SetErrorMode(faults.ParseMode(req.ErrorType), req.LatencyMs)
	default:
		http.Error(w, "unknown error_type", http.StatusBadRequest)
		return
	}

	if h.Log != nil {
		h.Log.WithFields(logrus.Fields{
			"error_type": req.ErrorType,
		}).Info("fault injected")
	}
	h.persist()
	writeJSON(w, http.StatusOK, h.Registry.Faults.Snapshot())
}

func (h *Hook) handleReset(w http.ResponseWriter, r *http.Request) {
	h.Registry.ResetAll()
	h.persist()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// persist writes the registry's current process-wide state to disk when a
// store is configured, logging (but not failing the request on) any error.
func (h *Hook) persist() {
	if h.Store == nil {
		return
	}
	if err := h.Store.Save(store.SnapshotRegistry(h.Registry)); err != nil && h.Log != nil {
		h.Log.WithError(err).Warn("failed to persist state")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
