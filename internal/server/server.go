// Package server runs the TCP listener and per-connection handling for the
// mock FIN protocol.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"swiftmock/internal/audit"
	"swiftmock/internal/session"
	"swiftmock/internal/store"
)

// Config holds the server's startup parameters.
type Config struct {
	Addr         string
	StatePath    string
	SaveOnChange bool
}

// Server owns the listener, the live session registry, and optional
// persistence.
type Server struct {
	cfg      Config
	log      *logrus.Entry
	Registry *session.Registry
	Store    *store.Store

	listener net.Listener
	done     chan struct{}
	wg       sync.WaitGroup
}

// New builds a Server in the given Config. If cfg.StatePath is non-empty, a
// Store is opened against it and any prior state is loaded into the
// registry immediately: persisted sessions, the shared audit log, the
// shared fault table, and the message counter, so a restarted process
// resumes exactly where it left off.
func New(cfg Config, log *logrus.Entry) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		log:      log,
		Registry: session.NewRegistry(),
		done:     make(chan struct{}),
	}
	if cfg.StatePath != "" {
		st, err := store.New(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		s.Store = st

		doc, err := st.Load()
		if err != nil {
			return nil, err
		}
		// Replace the shared log and fault state before restoring any
		// session, so each restored session's Faults/Log pointers (copied
		// in by Registry.Restore) land on the loaded instances.
		s.Registry.Log = audit.LoadAll(doc.Entries)
		s.Registry.Faults.Restore(doc.FaultState)
		s.Registry.SetMessageCount(doc.MessageCount)
		for _, rec := range doc.Sessions {
			s.Registry.Restore(session.Restore(rec))
		}
		log.WithField("sessions", len(doc.Sessions)).Info("restored persisted state")
	}
	return s, nil
}

// ListenAndServe opens the TCP listener and accepts connections until ctx
// is canceled or Shutdown is called. Go's net package already sets
// SO_REUSEADDR on Unix listeners, so a restart can rebind the same address
// immediately.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.WithField("addr", ln.Addr().String()).Info("listening")

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				s.log.WithError(err).Warn("accept failed")
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown closes the listener, waits for in-flight connections to finish,
// and takes a final persistence snapshot.
func (s *Server) Shutdown() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	s.persist()
}

// persist writes the current registry state to disk if persistence is
// configured. Errors are logged and swallowed: a failed snapshot must
// never take down an active connection.
func (s *Server) persist() {
	if s.Store == nil {
		return
	}
	doc := store.SnapshotRegistry(s.Registry)
	if err := s.Store.Save(doc); err != nil {
		s.log.WithError(err).Warn("failed to persist state")
	}
}
