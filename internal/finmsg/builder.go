package finmsg

import (
	"fmt"
	"time"

	"swiftmock/internal/trailer"
)

// Fixed header literals, bit-exact per the mock protocol. Change these only
// if the client side changes in lockstep.
const (
	AckBlock1    = "F21MOCKSVRXXXXAXXX0000000000"
	AckBlock2    = "I901MOCKRCVRXXXXN"
	ResendBlock1 = "F02MOCKSVRXXXXAXXX0000000000"
	ResendBlock2 = "I2MOCKRCVRXXXXN"
)

func appendTrailer(body string) string {
	chk := trailer.Checksum(body)
	mac := trailer.MAC(body, trailer.DefaultKey)
	return body + fmt.Sprintf("{5:{MAC:%s}{CHK:%s}}", mac, chk)
}

// BuildLoginOK is the unsolicited greeting sent immediately on accept.
// Its trailer is optional per the handshake rule that introduces it, so
// this builder omits one.
func BuildLoginOK() string {
	return fmt.Sprintf("{1:%s}{2:%s}{4:\n:20:LOGIN_OK\n:79:LOGIN_SUCCESSFUL\n-}\n", AckBlock1, AckBlock2)
}

// BuildLoginACK is the response to the client's own explicit LOGIN message,
// the point at which the session becomes authenticated. Unlike the
// greeting, this response carries a trailer.
func BuildLoginACK(outputSeq int) string {
	body := fmt.Sprintf(
		"{1:%s}{2:%s}{4:\n:20:LOGIN\n:34:%d\n:77E:LOGIN_ACK\n:79:LOGIN_SUCCESSFUL\n-}\n",
		AckBlock1, AckBlock2, outputSeq,
	)
	return appendTrailer(body)
}

// BuildACK builds the positive acknowledgment for an accepted inbound
// message. An empty ref is replaced by the literal UNKNOWN; no message id
// is substituted for a missing transaction reference. uetr is synthesized
// from the current time when the inbound message carried none.
func BuildACK(ref, uetr string, outputSeq int) string {
	if ref == "" {
		ref = "UNKNOWN"
	}
	now := time.Now()
	if uetr == "" {
		uetr = fmt.Sprintf("ACK-%s", now.Format("20060102150405"))
	}
	body := fmt.Sprintf(
		"{1:%s}{2:%s}{4:\n:20:%s\n:34:%d\n:77E:ACK\n:108:%s\n:177:%s\n:451:0\n-}\n",
		AckBlock1, AckBlock2, ref, outputSeq, uetr, now.Format("0601021504"),
	)
	return appendTrailer(body)
}

// BuildNACK builds a negative acknowledgment with the given error code
// (a non-zero digit string) and a single-line reason.
func BuildNACK(ref string, outputSeq int, errorCode, reason string) string {
	if ref == "" {
		ref = "UNKNOWN"
	}
	now := time.Now()
	body := fmt.Sprintf(
		"{1:%s}{2:%s}{4:\n:20:%s\n:34:%d\n:77E:NACK\n:177:%s\n:451:%s\n:79:%s\n-}\n",
		AckBlock1, AckBlock2, ref, outputSeq, now.Format("0601021504"), errorCode, oneLine(reason),
	)
	return appendTrailer(body)
}

// BuildResendRequest builds a MsgType 2 Resend Request covering the
// inclusive sequence range [fromSeq, toSeq].
func BuildResendRequest(outputSeq, fromSeq, toSeq int) string {
	body := fmt.Sprintf(
		"{1:%s}{2:%s}{4:\n:34:%d\n:7:%d\n:16:%d\n-}\n",
		ResendBlock1, ResendBlock2, outputSeq, fromSeq, toSeq,
	)
	return appendTrailer(body)
}

// oneLine collapses a reason string to a single line so it can't smuggle a
// second field marker into block 4.
func oneLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			out = append(out, ' ')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
