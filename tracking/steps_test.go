package tracking

import "testing"

// TestNextSequencing verifies the sequencing invariant over the default
// configuration: every non-terminal key advances to exactly the key with
// the following order value, and the terminal key has no next.
func TestNextSequencing(t *testing.T) {
	steps := DefaultConfig().Steps
	sorted := Sorted(steps)

	for i := 0; i < len(sorted)-1; i++ {
		next, ok := Next(sorted[i].Key, steps)
		if !ok {
			t.Fatalf("Next(%s): expected ok", sorted[i].Key)
		}
		if next != sorted[i+1].Key {
			t.Errorf("Next(%s) = %s, want %s", sorted[i].Key, next, sorted[i+1].Key)
		}
	}

	if _, ok := Next(StepDelivered, steps); ok {
		t.Error("terminal step should have no next")
	}
	if _, ok := Next("no-such-step", steps); ok {
		t.Error("unknown step should have no next")
	}
}

func TestCanAdvance(t *testing.T) {
	steps := DefaultConfig().Steps
	cases := []struct {
		key  string
		want bool
	}{
		{StepPending, true},
		{StepConfirmed, true},
		{StepEnRoute, true},
		{StepArriving, true},
		{StepDelivered, false},
		{"bogus", false},
	}
	for _, tc := range cases {
		if got := CanAdvance(tc.key, steps); got != tc.want {
			t.Errorf("CanAdvance(%s) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

// TestNextFollowsEditedOrder checks that sequencing is driven purely by
// the order field, not by any hard-coded status names.
func TestNextFollowsEditedOrder(t *testing.T) {
	steps := []Step{
		{Key: "queued", Order: 1},
		{Key: "loading", Order: 2},
		{Key: "driving", Order: 3},
		{Key: "done", Order: 4},
	}
	next, ok := Next("loading", steps)
	if !ok || next != "driving" {
		t.Fatalf("Next(loading) = %s/%v, want driving/true", next, ok)
	}
	if !IsTerminal("done", steps) {
		t.Error("done should be terminal")
	}
	if IsTerminal("driving", steps) {
		t.Error("driving should not be terminal")
	}
	if TerminalKey(steps) != "done" {
		t.Errorf("TerminalKey = %s, want done", TerminalKey(steps))
	}
}

// TestReorderRenumbering: moving a step from position 3 to position 1 in
// a five-step list yields order values 1..5 with no gaps or duplicates.
func TestReorderRenumbering(t *testing.T) {
	steps := DefaultConfig().Steps

	got := Reorder(steps, 2, 0)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].Key != StepEnRoute {
		t.Errorf("moved step at index 0 = %s, want %s", got[0].Key, StepEnRoute)
	}
	seen := make(map[int]bool)
	for i, s := range got {
		if s.Order != i+1 {
			t.Errorf("step %d order = %d, want %d", i, s.Order, i+1)
		}
		if seen[s.Order] {
			t.Errorf("duplicate order %d", s.Order)
		}
		seen[s.Order] = true
	}
}

func TestReorderOutOfRange(t *testing.T) {
	steps := DefaultConfig().Steps
	got := Reorder(steps, -1, 2)
	if len(got) != len(steps) {
		t.Fatalf("len = %d, want %d", len(got), len(steps))
	}
	for i, s := range Sorted(steps) {
		if got[i].Key != s.Key {
			t.Errorf("step %d = %s, want %s (unchanged)", i, got[i].Key, s.Key)
		}
	}
}

func TestIndexOf(t *testing.T) {
	steps := DefaultConfig().Steps
	if idx := IndexOf(StepEnRoute, steps); idx != 2 {
		t.Errorf("IndexOf(en-route) = %d, want 2", idx)
	}
	if idx := IndexOf("bogus", steps); idx != -1 {
		t.Errorf("IndexOf(bogus) = %d, want -1", idx)
	}
}
