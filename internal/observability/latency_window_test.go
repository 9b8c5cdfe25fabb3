package observability

import "testing"

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8)
	w.Observe("dispatch", 500)
	w.Observe("dispatch", 700)
	w.Observe("dispatch", 900)
	w.ObserveIndicator("capture_restart")
	w.ObserveIndicator("capture_restart")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "dispatch" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "dispatch")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.TargetP95MS != 2000 {
		t.Fatalf("TargetP95MS = %.2f, want 2000", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "capture_restart" || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0] = %+v, want capture_restart count 2", snap.Indicators[0])
	}
}

func TestLatencyWindowRingEviction(t *testing.T) {
	w := newLatencyWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("playback", float64(100*i))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("Samples = %d, want 4 after eviction", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", snap.Stages[0].LastMS)
	}
}

func TestLatencyWindowIgnoresInvalidSamples(t *testing.T) {
	w := newLatencyWindow(4)
	w.Observe("", 100)
	w.Observe("dispatch", -5)
	w.ObserveIndicator("  ")
	snap := w.Snapshot()
	if len(snap.Stages) != 0 {
		t.Fatalf("len(Stages) = %d, want 0", len(snap.Stages))
	}
	if len(snap.Indicators) != 0 {
		t.Fatalf("len(Indicators) = %d, want 0", len(snap.Indicators))
	}
}
