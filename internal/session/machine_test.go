package session

import (
	"strings"
	"testing"

	"swiftmock/internal/audit"
	"swiftmock/internal/faults"
	"swiftmock/internal/finmsg"
)

func mustParse(t *testing.T, raw string) *finmsg.Message {
	t.Helper()
	m, err := finmsg.Parse(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return m
}

func TestExplicitLoginTransitionsToActive(t *testing.T) {
	s := New("127.0.0.1:1")
	login := mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}")

	d := Machine{}.Handle(s, login)
	if d.Response == "" {
		t.Fatalf("expected a login ack response")
	}
	if s.State() != StateActive {
		t.Fatalf("state = %v, want Active", s.State())
	}
	if s.InputSeq() != 1 {
		t.Fatalf("input seq = %d, want 1", s.InputSeq())
	}
}

func TestOutputSeqMonotonicAcrossMultipleMessages(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))

	first := s.OutputSeq()
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-2\n:34:2\n-}"))
	second := s.OutputSeq()

	if second <= first {
		t.Fatalf("output_seq must strictly increase: %d then %d", first, second)
	}
}

func TestSequenceGapTriggersResendWithoutAdvancingInput(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))

	before := s.InputSeq()
	d := Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-5\n:34:5\n-}"))

	if s.InputSeq() != before {
		t.Fatalf("input_seq must not advance on a sequence gap")
	}
	if !strings.Contains(d.Response, ":7:2") || !strings.Contains(d.Response, ":16:4") {
		t.Fatalf("expected resend request covering [2,4], got %q", d.Response)
	}
}

func TestDuplicateSequenceIsACKedWithoutAdvancing(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-2\n:34:2\n-}"))

	before := s.InputSeq()
	d := Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-2-DUP\n:34:2\n-}"))

	if s.InputSeq() != before {
		t.Fatalf("input_seq must not advance on a duplicate sequence")
	}
	if !strings.Contains(d.Response, ":77E:ACK") {
		t.Fatalf("expected an ACK for a duplicate, got %q", d.Response)
	}

	entries := s.Log.All()
	last := entries[len(entries)-1]
	if last.Duplicate {
		t.Fatalf("expected the outbound ACK entry to not be tagged duplicate")
	}
	var inboundDup bool
	for _, e := range entries {
		if e.Direction == audit.Inbound && e.Raw == "{1:X}{2:Y}{4:\n:20:REF-2-DUP\n:34:2\n-}" {
			inboundDup = e.Duplicate
		}
	}
	if !inboundDup {
		t.Fatalf("expected the duplicate inbound message to be tagged in the audit log, entries: %+v", entries)
	}
}

func TestIgnoredSequenceProducesNoResponseButAdvancesNothing(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))
	s.Faults.AddIgnoredSequences(2)

	d := Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-2\n:34:2\n-}"))
	if !d.NoResponse {
		t.Fatalf("expected no response for an ignored sequence")
	}
	if s.InputSeq() != 1 {
		t.Fatalf("input_seq must not advance when a sequence is ignored")
	}
}

func TestDropConnectionFaultClosesWithNoResponse(t *testing.T) {
	s := New("127.0.0.1:1")
	s.Faults.SetDropConnection()

	d := Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))
	if !d.CloseConnection || !d.NoResponse {
		t.Fatalf("expected connection to close with no response")
	}
}

func TestTimeoutModeSuppressesResponses(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))
	s.Faults.SetErrorMode(faults.ModeTimeout, 0)

	d := Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-2\n:34:2\n-}"))
	if !d.NoResponse {
		t.Fatalf("expected no response while in timeout mode")
	}
}

func TestNackNextForcesNACKOnOtherwiseValidMessage(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))
	s.Faults.SetNackNext()

	d := Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-2\n:34:2\n-}"))
	if !strings.Contains(d.Response, ":77E:NACK") {
		t.Fatalf("expected forced NACK, got %q", d.Response)
	}
	if !strings.Contains(d.Response, ":451:7") {
		t.Fatalf("expected error_code 7, got %q", d.Response)
	}
	if !strings.Contains(d.Response, ":79:ADVERSARIAL_TEST") {
		t.Fatalf("expected ADVERSARIAL_TEST reason, got %q", d.Response)
	}
	if s.InputSeq() != 2 {
		t.Fatalf("input_seq = %d, want 2: a forced NACK still advances input_seq", s.InputSeq())
	}

	// The following message in sequence must be accepted normally, not
	// treated as a gap because the forced NACK failed to advance input_seq.
	d = Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:REF-3\n:34:3\n-}"))
	if !strings.Contains(d.Response, ":77E:ACK") {
		t.Fatalf("expected the next in-sequence message to ACK, got %q", d.Response)
	}
}

func TestInvalidTrailerProducesNACK(t *testing.T) {
	s := New("127.0.0.1:1")
	Machine{}.Handle(s, mustParse(t, "{1:X}{2:Y}{4:\n:20:LOGIN\n:34:1\n-}"))

	raw := "{1:X}{2:Y}{4:\n:20:REF-2\n:34:2\n-}\n{5:{MAC:DEADBEEFDEADBEEF}{CHK:DEADBEEFDEAD}}"
	d := Machine{}.Handle(s, mustParse(t, raw))
	if !strings.Contains(d.Response, ":77E:NACK") {
		t.Fatalf("expected NACK for an invalid trailer, got %q", d.Response)
	}
	if !strings.Contains(d.Response, ":451:5") {
		t.Fatalf("expected error_code 5, got %q", d.Response)
	}
	if s.InputSeq() != 1 {
		t.Fatalf("input_seq = %d, want 1: a trailer-validation NACK must not advance it", s.InputSeq())
	}
}
