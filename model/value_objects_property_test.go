package model

import (
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyPriorityIsTotal verifies that every integer maps to exactly one
// of the five known priority tiers.
func TestPropertyPriorityIsTotal(t *testing.T) {
	known := map[Priority]bool{
		PriorityCritical: true,
		PriorityHigh:     true,
		PriorityMedium:   true,
		PriorityLow:      true,
		PriorityTrivial:  true,
	}
	rapid.Check(t, func(rt *rapid.T) {
		points := rapid.Int().Draw(rt, "points")
		p := PriorityFromStoryPoints(points)
		if !known[p] {
			rt.Fatalf("PriorityFromStoryPoints(%d) = %q, not a known tier", points, p)
		}
	})
}

// TestPropertyPriorityIsMonotonic verifies that more story points never lower
// the priority tier.
func TestPropertyPriorityIsMonotonic(t *testing.T) {
	rank := map[Priority]int{
		PriorityTrivial:  0,
		PriorityLow:      1,
		PriorityMedium:   2,
		PriorityHigh:     3,
		PriorityCritical: 4,
	}
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(-50, 50).Draw(rt, "a")
		b := rapid.IntRange(-50, 50).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}
		if rank[PriorityFromStoryPoints(a)] > rank[PriorityFromStoryPoints(b)] {
			rt.Fatalf("priority(%d) > priority(%d)", a, b)
		}
	})
}

// TestPropertyCycleThreeTimesIsIdentity verifies that cycling a valid status
// three times always returns the original status.
func TestPropertyCycleThreeTimesIsIdentity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		status := rapid.SampledFrom([]Status{StatusTodo, StatusInProgress, StatusDone}).Draw(rt, "status")
		if got := status.Cycle().Cycle().Cycle(); got != status {
			rt.Fatalf("%s cycled three times = %s", status, got)
		}
	})
}
