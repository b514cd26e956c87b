package finmsg

import "regexp"

var (
	block1Pattern = regexp.MustCompile(`(?s)\{1:([^}]+)\}`)
	block2Pattern = regexp.MustCompile(`(?s)\{2:([^}]+)\}`)

	// Block 3 holds exactly one recognized sub-field in this mock: {108:<UETR>}.
	block3Pattern     = regexp.MustCompile(`(?s)\{3:(\{108:[^}]*\})\}`)
	block3UETRPattern = regexp.MustCompile(`(?s)\{3:\{108:([^}]+)\}\}`)

	// Block 4 is bounded by {4: and the literal terminator -}, not a closing brace.
	block4Pattern = regexp.MustCompile(`(?s)\{4:(.*?)-\}`)

	// Block 5's body is scanned loosely here; trailer.Validate applies the
	// stricter hex-only pattern when actually checking CHK/MAC.
	block5Pattern = regexp.MustCompile(`(?s)\{5:(.+?\})\}`)
	macPattern    = regexp.MustCompile(`\{MAC:([0-9A-Za-z]+)\}`)
	chkPattern    = regexp.MustCompile(`\{CHK:([0-9A-Za-z]+)\}`)

	// Matches a full, well-formed trailer following a block-4 terminator,
	// directly or after one newline, used by the framer to fold a trailing
	// block 5 into the same frame instead of leaving it for the next read.
	trailerSuffixPattern = regexp.MustCompile(`^\n?\{5:\{MAC:[0-9A-Za-z]*\}\{CHK:[0-9A-Za-z]*\}\}`)

	tagMarkerPattern  = regexp.MustCompile(`:(\d+[A-Z]?):`)
	refTokenPattern   = regexp.MustCompile(`\S+`)
	value32APattern   = regexp.MustCompile(`^(\d{6})([A-Za-z]{3})([\d,\.]+)`)
)
