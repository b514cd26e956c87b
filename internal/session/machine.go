package session

import (
	"time"

	"swiftmock/internal/audit"
	"swiftmock/internal/finmsg"
	"swiftmock/internal/trailer"
)

// Decision is the outcome of running one inbound message through the
// decision table: what, if anything, to send back, and whether the
// connection should be torn down.
type Decision struct {
	Response        string
	CloseConnection bool
	NoResponse      bool
	LatencyMs       int
}

// Machine evaluates inbound messages against a session's state and fault
// table. It holds no state of its own; all mutation happens on the Session
// passed to Handle.
type Machine struct{}

// Handle runs the full R1-R7 decision table against an inbound message for
// the given session, in order:
//
//	R1 drop-connection fault  -> close, no response
//	R2 persistent timeout     -> no response, connection stays open
//	R3 trailer validation     -> NACK when a present trailer fails to verify
//	R4 sequence gap           -> Resend Request, input_seq unchanged
//	R5 ignored sequence       -> silently skipped, input_seq unchanged
//	R6 nack-next fault        -> NACK regardless of message validity, input_seq advances
//	R7 default                -> ACK, input_seq advances
//
// A duplicate or stale sequence number (<= input_seq) is accepted but
// treated as a no-op: it is ACKed so the client doesn't retry forever, but
// does not advance input_seq, and is flagged in the audit entry.
func (Machine) Handle(s *Session, m *finmsg.Message) Decision {
	if isDuplicateSeq(s, m) {
		s.Log.AppendDuplicate(audit.Inbound, m.Raw, m.SequenceNumber)
	} else {
		s.Log.Append(audit.Inbound, m.Raw, m.SequenceNumber)
	}
	d := evaluate(s, m)
	if d.Response != "" {
		d.LatencyMs = s.Faults.LatencyMs()
	}
	return d
}

// isDuplicateSeq reports whether m repeats a sequence number already
// accepted by an active session, matching the condition evaluate applies
// before routing to respondDuplicateACK.
func isDuplicateSeq(s *Session, m *finmsg.Message) bool {
	if s.State() == StateHandshaking {
		return false
	}
	inputSeq := s.InputSeq()
	return m.SequenceNumber <= inputSeq && inputSeq > 0
}

// evaluate applies R1-R7 without re-recording the inbound audit entry, so
// the handshake path can fall through to it for a client that skips the
// explicit LOGIN message.
func evaluate(s *Session, m *finmsg.Message) Decision {
	if s.Faults.ConsumeDropConnection() {
		return Decision{CloseConnection: true, NoResponse: true}
	}

	if s.Faults.IsTimeoutMode() {
		time.Sleep(2 * time.Second)
		return Decision{NoResponse: true}
	}

	if m.MAC != "" && m.Checksum != "" {
		if ok, reason := trailer.Validate(m.Raw); !ok {
			return s.respondNACK(m, "5", reason)
		}
	}

	if s.State() == StateHandshaking {
		return s.handleHandshake(m)
	}

	inputSeq := s.InputSeq()

	if m.SequenceNumber > inputSeq+1 {
		return s.respondResend(inputSeq+1, m.SequenceNumber-1)
	}

	if m.SequenceNumber <= inputSeq && inputSeq > 0 {
		return s.respondDuplicateACK(m)
	}

	if s.Faults.ConsumeIgnored(m.SequenceNumber) {
		s.Touch()
		return Decision{NoResponse: true}
	}

	if s.Faults.ConsumeNackNext() {
		return s.respondNACKAdvance(m, "7", "ADVERSARIAL_TEST")
	}

	return s.respondACK(m)
}

func (s *Session) handleHandshake(m *finmsg.Message) Decision {
	if m.Kind == finmsg.KindLogin {
		s.AdvanceInput(m.SequenceNumber)
		s.SetState(StateActive)
		out := s.NextOutput()
		resp := finmsg.BuildLoginACK(out)
		s.Log.Append(audit.Outbound, resp, out)
		return Decision{Response: resp}
	}

	// The greeting already granted an unsolicited login on accept; any
	// other first message is processed as if the session were already
	// active, matching a client that skips the explicit LOGIN handshake.
	s.SetState(StateActive)
	return evaluate(s, m)
}

func (s *Session) respondACK(m *finmsg.Message) Decision {
	s.AdvanceInput(m.SequenceNumber)
	out := s.NextOutput()
	resp := finmsg.BuildACK(m.TransactionReference, m.UETR, out)
	s.Log.Append(audit.Outbound, resp, out)
	return Decision{Response: resp}
}

func (s *Session) respondDuplicateACK(m *finmsg.Message) Decision {
	out := s.NextOutput()
	resp := finmsg.BuildACK(m.TransactionReference, m.UETR, out)
	s.Log.Append(audit.Outbound, resp, out)
	return Decision{Response: resp}
}

func (s *Session) respondNACK(m *finmsg.Message, code, reason string) Decision {
	out := s.NextOutput()
	resp := finmsg.BuildNACK(m.TransactionReference, out, code, reason)
	s.Log.Append(audit.Outbound, resp, out)
	return Decision{Response: resp}
}

// respondNACKAdvance is respondNACK plus an input_seq advance, used by R6's
// forced NACK: the message is still rejected, but unlike R3's trailer
// failure, the session treats it as consumed so the next message in
// sequence is accepted rather than flagged as a gap.
func (s *Session) respondNACKAdvance(m *finmsg.Message, code, reason string) Decision {
	s.AdvanceInput(m.SequenceNumber)
	return s.respondNACK(m, code, reason)
}

func (s *Session) respondResend(fromSeq, toSeq int) Decision {
	out := s.NextOutput()
	resp := finmsg.BuildResendRequest(out, fromSeq, toSeq)
	s.Log.Append(audit.Outbound, resp, out)
	return Decision{Response: resp}
}
