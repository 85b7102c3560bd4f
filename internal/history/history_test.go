package history

import (
	"fmt"
	"testing"
)

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	for i := 0; i < 7; i++ {
		h.Push(float64(30 + i))
	}

	if h.Len() != 5 {
		t.Errorf("expected 5 values, got %d", h.Len())
	}

	if h.Last() != 36.0 {
		t.Errorf("Last(): got %f, want 36.0", h.Last())
	}

	if h.Min != 30.0 {
		t.Errorf("Min: got %f, want 30.0", h.Min)
	}

	if h.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", h.Peak)
	}

	vals := h.LastN(3)
	if len(vals) != 3 || vals[0] != 34 || vals[2] != 36 {
		t.Errorf("LastN(3): got %v, want [34 35 36]", vals)
	}

	if h.Avg() != 34.0 {
		t.Errorf("Avg(): got %f, want 34.0", h.Avg())
	}
}

func TestTrackerKeepsMostRecent(t *testing.T) {
	tr := NewTracker(DefaultCapacity)

	for i := 0; i < 45; i++ {
		tr.Record("cpu/package", float64(i))
	}

	got := tr.Snapshot("cpu/package")
	if len(got) != DefaultCapacity {
		t.Fatalf("Snapshot length: got %d, want %d", len(got), DefaultCapacity)
	}
	for i, v := range got {
		if want := float64(15 + i); v != want {
			t.Fatalf("Snapshot[%d] = %f, want %f", i, v, want)
		}
	}
}

func TestTrackerBoundedForAllIdentifiers(t *testing.T) {
	tr := NewTracker(DefaultCapacity)
	for id := 0; id < 10; id++ {
		key := fmt.Sprintf("sensor/%d", id)
		for i := 0; i < id*7; i++ {
			tr.Record(key, float64(i))
		}
	}
	for id := 0; id < 10; id++ {
		key := fmt.Sprintf("sensor/%d", id)
		if n := len(tr.Snapshot(key)); n > DefaultCapacity {
			t.Errorf("%s: %d entries exceeds capacity", key, n)
		}
	}
}

func TestTrackerSnapshotIsIndependent(t *testing.T) {
	tr := NewTracker(3)
	tr.Record("a", 40)
	tr.Record("a", 41)

	snap := tr.Snapshot("a")
	tr.Record("a", 42)
	tr.Record("a", 43)

	if len(snap) != 2 || snap[0] != 40 || snap[1] != 41 {
		t.Errorf("earlier snapshot changed: %v", snap)
	}

	snap[0] = 99
	if got := tr.Snapshot("a"); got[0] != 41 {
		t.Errorf("mutating a snapshot leaked into the tracker: %v", got)
	}
}

func TestTrackerUnknownIdentifier(t *testing.T) {
	tr := NewTracker(DefaultCapacity)
	got := tr.Snapshot("nope")
	if got == nil || len(got) != 0 {
		t.Errorf("Snapshot(unknown) = %v, want empty slice", got)
	}
	if _, _, ok := tr.Extremes("nope"); ok {
		t.Error("Extremes(unknown) reported ok")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestTrackerExtremes(t *testing.T) {
	tr := NewTracker(2)
	for _, v := range []float64{50, 30, 70, 60} {
		tr.Record("gpu", v)
	}
	min, peak, ok := tr.Extremes("gpu")
	if !ok || min != 30 || peak != 70 {
		t.Errorf("Extremes = %f, %f, %v; want 30, 70, true", min, peak, ok)
	}
}
