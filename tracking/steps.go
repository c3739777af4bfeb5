package tracking

import "sort"

// Step is one stage of the delivery pipeline. Order defines the sequence
// position (1..N, no ties); the last step by Order is the terminal step.
type Step struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// Default step keys. The sequencing logic never depends on these names;
// they only seed the default configuration and the simulator's canned
// progress strings.
const (
	StepPending   = "pending"
	StepConfirmed = "confirmed"
	StepEnRoute   = "en-route"
	StepArriving  = "arriving"
	StepDelivered = "delivered"
)

// Sorted returns a copy of steps ordered by Order ascending.
func Sorted(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// IndexOf returns the position of key in the sorted sequence, or -1.
func IndexOf(key string, steps []Step) int {
	for i, s := range Sorted(steps) {
		if s.Key == key {
			return i
		}
	}
	return -1
}

// CanAdvance reports whether current has a following step in the sequence.
func CanAdvance(current string, steps []Step) bool {
	idx := IndexOf(current, steps)
	return idx >= 0 && idx < len(steps)-1
}

// Next returns the step key following current. ok is false when current
// is absent from the sequence or already terminal.
func Next(current string, steps []Step) (string, bool) {
	sorted := Sorted(steps)
	for i, s := range sorted {
		if s.Key == current {
			if i >= len(sorted)-1 {
				return "", false
			}
			return sorted[i+1].Key, true
		}
	}
	return "", false
}

// IsTerminal reports whether key is the last step in the sequence.
func IsTerminal(key string, steps []Step) bool {
	sorted := Sorted(steps)
	return len(sorted) > 0 && sorted[len(sorted)-1].Key == key
}

// TerminalKey returns the key of the last step, or "" for an empty sequence.
func TerminalKey(steps []Step) string {
	sorted := Sorted(steps)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[len(sorted)-1].Key
}

// StepByKey returns the step with the given key.
func StepByKey(key string, steps []Step) (Step, bool) {
	for _, s := range steps {
		if s.Key == key {
			return s, true
		}
	}
	return Step{}, false
}

// Reorder moves the step at from to position to, then renumbers every
// step's Order to 1..N by new position. Order is always derived from
// position, never edited directly. Out-of-range indexes return the input
// unchanged.
func Reorder(steps []Step, from, to int) []Step {
	sorted := Sorted(steps)
	if from < 0 || from >= len(sorted) || to < 0 || to >= len(sorted) {
		return sorted
	}
	moved := sorted[from]
	sorted = append(sorted[:from], sorted[from+1:]...)
	sorted = append(sorted[:to], append([]Step{moved}, sorted[to:]...)...)
	for i := range sorted {
		sorted[i].Order = i + 1
	}
	return sorted
}
