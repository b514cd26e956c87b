// Package finmsg parses and builds the five-block SWIFT FIN envelope this
// mock speaks: {1:...}{2:...}{3:...}{4:...-}{5:...}. Block extraction uses
// stdlib regexp rather than hand-rolled byte scanning — unlike the wire
// formats this module's teacher parses, FIN blocks are line-oriented text
// with no nested binary length fields, and no regex/parser-combinator
// library appears anywhere in the retrieval pack for this kind of work.
package finmsg

import (
	"errors"
	"strconv"
	"strings"
)

// Kind is the tagged sum of inbound message categories this mock
// recognizes. Unlike a reflection- or decorator-based router, each
// Message is classified once at parse time and dispatched on that tag.
type Kind int

const (
	KindUnknown Kind = iota
	KindLogin
	KindHeartbeat
	KindMT103
)

func (k Kind) String() string {
	switch k {
	case KindLogin:
		return "LOGIN"
	case KindHeartbeat:
		return "HEARTBEAT"
	case KindMT103:
		return "MT103"
	default:
		return "UNKNOWN"
	}
}

// Message is a parsed FIN envelope. Absence of an optional block or field
// leaves the corresponding value at its zero value; parsing only fails
// when block 4 cannot be located at all.
type Message struct {
	Raw string

	Block1 string
	Block2 string
	Block3 string
	Block4 string
	Block5 string

	Fields     map[string]string
	FieldOrder []string

	UETR                  string
	TransactionReference  string
	SequenceNumber        int
	ValueDate             string
	Currency              string
	Amount                string
	OrderingCustomer      string
	Beneficiary           string
	MAC                   string
	Checksum              string

	Kind Kind
}

var errNoBlock4 = errors.New("no block 4")

// Parse tokenizes a complete raw FIN message. The only structural error is
// a missing block 4; every other block and field is optional.
func Parse(raw string) (*Message, error) {
	m := &Message{
		Raw:    raw,
		Fields: make(map[string]string),
	}

	if match := block1Pattern.FindStringSubmatch(raw); match != nil {
		m.Block1 = match[1]
	}
	if match := block2Pattern.FindStringSubmatch(raw); match != nil {
		m.Block2 = match[1]
	}
	if match := block3Pattern.FindStringSubmatch(raw); match != nil {
		m.Block3 = match[1]
		if uetr := block3UETRPattern.FindStringSubmatch(raw); uetr != nil {
			m.UETR = uetr[1]
		}
	}

	block4, ok := extractBlock4(raw)
	if !ok {
		return nil, errNoBlock4
	}
	m.Block4 = block4
	parseFields(m, block4)

	if match := block5Pattern.FindStringSubmatch(raw); match != nil {
		m.Block5 = match[1]
		if mm := macPattern.FindStringSubmatch(match[1]); mm != nil {
			m.MAC = mm[1]
		}
		if cm := chkPattern.FindStringSubmatch(match[1]); cm != nil {
			m.Checksum = cm[1]
		}
	}

	m.Kind = classify(m)
	return m, nil
}

func extractBlock4(raw string) (string, bool) {
	match := block4Pattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// parseFields walks block 4 looking for ":<tag>:" markers, where tag
// matches \d+[A-Z]?, and assigns each field the text run up to the next
// marker or end of block. Leading/trailing whitespace is stripped; interior
// newlines are preserved, matching multi-line fields like :50K:.
func parseFields(m *Message, block4 string) {
	locs := tagMarkerPattern.FindAllStringSubmatchIndex(block4, -1)
	for i, loc := range locs {
		tag := block4[loc[2]:loc[3]]
		valueStart := loc[1]
		valueEnd := len(block4)
		if i+1 < len(locs) {
			valueEnd = locs[i+1][0]
		}
		value := strings.TrimSpace(block4[valueStart:valueEnd])

		if _, exists := m.Fields[tag]; !exists {
			m.FieldOrder = append(m.FieldOrder, tag)
		}
		m.Fields[tag] = value
	}

	if ref, ok := m.Fields["20"]; ok {
		if tok := refTokenPattern.FindString(ref); tok != "" {
			m.TransactionReference = tok
		}
	}

	if v, ok := m.Fields["32A"]; ok {
		if vm := value32APattern.FindStringSubmatch(v); vm != nil {
			m.ValueDate = vm[1]
			m.Currency = vm[2]
			m.Amount = vm[3]
		}
	}

	// sequence_number defaults to 1 when absent, zero, or unparsable —
	// the first message on a fresh session is accepted as sequence 1.
	m.SequenceNumber = 1
	if s, ok := m.Fields["34"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			m.SequenceNumber = n
		}
	}

	if v, ok := m.Fields["50K"]; ok {
		m.OrderingCustomer = v
	}
	if v, ok := m.Fields["59"]; ok {
		m.Beneficiary = v
	}
}

func classify(m *Message) Kind {
	if ref, ok := m.Fields["20"]; ok && strings.EqualFold(strings.TrimSpace(ref), "LOGIN") {
		return KindLogin
	}
	if _, ok := m.Fields["32A"]; ok {
		return KindMT103
	}
	if len(m.Fields) == 0 {
		return KindHeartbeat
	}
	return KindUnknown
}
