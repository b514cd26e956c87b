package finmsg

import "testing"

func TestExtractFramePartialBufferIsNotReady(t *testing.T) {
	_, _, ok := ExtractFrame("{1:X}{2:Y}{4:\n:20:REF")
	if ok {
		t.Fatalf("expected a partial message with no block 4 terminator to report not-ready")
	}
}

func TestExtractFrameWithoutTrailer(t *testing.T) {
	raw := "{1:X}{2:Y}{4:\n:20:REF\n-}\n"
	frame, rest, ok := ExtractFrame(raw)
	if !ok {
		t.Fatalf("expected a complete frame")
	}
	if rest != "" {
		t.Fatalf("expected no remaining buffer, got %q", rest)
	}
	if frame != raw {
		t.Fatalf("frame = %q, want %q", frame, raw)
	}
}

func TestExtractFrameFoldsTrailingTrailerIntoFrame(t *testing.T) {
	body := "{1:X}{2:Y}{4:\n:20:REF\n-}\n"
	raw := body + "{5:{MAC:ABCDEF0123456789}{CHK:0123456789AB}}"
	frame, rest, ok := ExtractFrame(raw)
	if !ok {
		t.Fatalf("expected a complete frame")
	}
	if rest != "" {
		t.Fatalf("expected the trailer to be folded into the frame, leftover %q", rest)
	}
	if frame != raw {
		t.Fatalf("frame = %q, want %q", frame, raw)
	}
}

func TestExtractFrameLeavesSecondMessageInBuffer(t *testing.T) {
	first := "{1:X}{2:Y}{4:\n:20:ONE\n-}\n"
	second := "{1:X}{2:Y}{4:\n:20:TWO\n-}\n"
	frame, rest, ok := ExtractFrame(first + second)
	if !ok {
		t.Fatalf("expected a complete frame")
	}
	if frame != first {
		t.Fatalf("frame = %q, want %q", frame, first)
	}
	if rest != second {
		t.Fatalf("rest = %q, want %q", rest, second)
	}
}
