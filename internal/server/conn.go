package server

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"swiftmock/internal/audit"
	"swiftmock/internal/finmsg"
	"swiftmock/internal/session"
)

// readChunk is the buffer size used for each net.Conn.Read call while
// accumulating a frame.
const readChunk = 4096

func (s *Server) handleConn(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	log := s.log.WithField("remote", addr)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("connection handler panicked, closing connection")
		}
	}()

	_, existed := s.Registry.Get(session.Key(addr))
	sess := s.Registry.GetOrCreate(addr)
	if !existed {
		s.persist()
	} else if sess.State() == session.StateClosed {
		// A reconnecting client that already completed the handshake
		// resumes where it left off instead of logging in again.
		sess.SetState(session.StateActive)
	}
	defer sess.SetState(session.StateClosed)

	if _, err := conn.Write([]byte(finmsg.BuildLoginOK())); err != nil {
		log.WithError(err).Debug("failed to send login greeting")
		return
	}

	reader := bufio.NewReaderSize(conn, readChunk)
	buf := make([]byte, 0, readChunk)

	for {
		frame, remaining, ok := finmsg.ExtractFrame(string(buf))
		if ok {
			buf = []byte(remaining)
			if s.process(conn, sess, frame, log) {
				return
			}
			continue
		}

		chunk := make([]byte, readChunk)
		n, err := reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			sess.SetState(session.StateClosed)
			return
		}
	}
}

// process decodes and handles one complete frame. It returns true when the
// connection should be closed.
func (s *Server) process(conn net.Conn, sess *session.Session, raw string, log *logrus.Entry) bool {
	decoded := strings.ToValidUTF8(raw, "�")

	m, err := finmsg.Parse(decoded)
	if err != nil {
		// A structurally malformed message (no block 4) waits forever,
		// matching the framing-error handling of a genuine silent drop.
		sess.Log.Append(audit.Inbound, decoded, -1)
		log.Debug("malformed frame with no block 4, ignoring")
		return false
	}

	decision := session.Machine{}.Handle(sess, m)
	s.Registry.IncrementMessageCount()
	s.persist()

	if decision.LatencyMs > 0 {
		time.Sleep(time.Duration(decision.LatencyMs) * time.Millisecond)
	}

	if !decision.NoResponse && decision.Response != "" {
		if _, err := conn.Write([]byte(decision.Response)); err != nil {
			return true
		}
	}

	if decision.CloseConnection {
		sess.SetState(session.StateClosed)
		return true
	}
	return false
}
