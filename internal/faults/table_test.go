package faults

import "testing"

func TestDropConnectionFiresOnce(t *testing.T) {
	var tbl Table
	tbl.SetDropConnection()

	if !tbl.ConsumeDropConnection() {
		t.Fatalf("expected drop-connection trigger to fire")
	}
	if tbl.ConsumeDropConnection() {
		t.Fatalf("drop-connection trigger should be one-shot")
	}
}

func TestNackNextFiresOnce(t *testing.T) {
	var tbl Table
	tbl.SetNackNext()

	if !tbl.ConsumeNackNext() {
		t.Fatalf("expected nack-next trigger to fire")
	}
	if tbl.ConsumeNackNext() {
		t.Fatalf("nack-next trigger should be one-shot")
	}
}

func TestIgnoredSequenceConsumedOnce(t *testing.T) {
	var tbl Table
	tbl.AddIgnoredSequences(5, 7)

	if !tbl.ContainsIgnored(5) {
		t.Fatalf("expected 5 to be marked ignored")
	}
	if !tbl.ConsumeIgnored(5) {
		t.Fatalf("expected consuming 5 to succeed")
	}
	if tbl.ConsumeIgnored(5) {
		t.Fatalf("ignored sequence should not refire after consumption")
	}
	if !tbl.ContainsIgnored(7) {
		t.Fatalf("consuming 5 should not affect 7")
	}
}

func TestPersistentModeSurvivesMultipleMessages(t *testing.T) {
	var tbl Table
	tbl.SetErrorMode(ModeTimeout, 0)

	if !tbl.IsTimeoutMode() {
		t.Fatalf("expected timeout mode")
	}
	if !tbl.IsTimeoutMode() {
		t.Fatalf("persistent mode must not be one-shot")
	}
}

func TestLatencyModeReportsLatencyOnlyWhenActive(t *testing.T) {
	var tbl Table
	tbl.SetErrorMode(ModeLatency, 250)

	if got := tbl.LatencyMs(); got != 250 {
		t.Fatalf("latency = %d, want 250", got)
	}

	tbl.SetErrorMode(ModeNone, 0)
	if got := tbl.LatencyMs(); got != 0 {
		t.Fatalf("latency = %d, want 0 once mode is cleared", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	var tbl Table
	tbl.SetErrorMode(ModeTimeout, 0)
	tbl.SetDropConnection()
	tbl.SetNackNext()
	tbl.AddIgnoredSequences(3)

	tbl.Reset()

	if tbl.IsTimeoutMode() {
		t.Fatalf("reset should clear persistent mode")
	}
	if tbl.ConsumeDropConnection() {
		t.Fatalf("reset should clear drop-connection trigger")
	}
	if tbl.ConsumeNackNext() {
		t.Fatalf("reset should clear nack-next trigger")
	}
	if tbl.ContainsIgnored(3) {
		t.Fatalf("reset should clear ignored sequences")
	}
}

func TestParseModeUnknownStringIsNone(t *testing.T) {
	if ParseMode("bogus") != ModeNone {
		t.Fatalf("unrecognized error_type should map to ModeNone")
	}
	if ParseMode("timeout") != ModeTimeout {
		t.Fatalf("expected timeout to parse")
	}
	if ParseMode("latency") != ModeLatency {
		t.Fatalf("expected latency to parse")
	}
}

func TestRestoreReappliesPersistentState(t *testing.T) {
	var tbl Table
	tbl.Restore(Snapshot{Mode: "latency", LatencyMs: 300, Ignored: []int{4, 9}})

	if got := tbl.LatencyMs(); got != 300 {
		t.Fatalf("latency = %d, want 300", got)
	}
	if !tbl.ContainsIgnored(4) || !tbl.ContainsIgnored(9) {
		t.Fatalf("expected restored ignored sequences to be present")
	}
}
