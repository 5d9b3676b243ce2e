package crdt

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGCounterMergeLaws checks two of the merge semilattice laws
// (commutative, idempotent) for the G-counter, the simplest of the four
// CRDTs, using gopter to generate random per-actor increment sequences.
func TestGCounterMergeLaws(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	actors := []ActorID{"a", "b", "c"}

	buildCounter := func(deltas []uint64) *GCounter {
		c := NewGCounter()
		for i, d := range deltas {
			c.Increment(actors[i%len(actors)], d%1000)
		}
		return c
	}

	properties.Property("merge is commutative", prop.ForAll(
		func(d1, d2 []uint64) bool {
			c1 := buildCounter(d1)
			c2a := buildCounter(d2)
			c2b := buildCounter(d2)

			left := buildCounter(d1)
			left.Merge(c2a)

			right := c2b
			right.Merge(c1)

			return left.Value() == right.Value()
		},
		gen.SliceOf(gen.UInt64Range(0, 1000)),
		gen.SliceOf(gen.UInt64Range(0, 1000)),
	))

	properties.Property("merge is idempotent", prop.ForAll(
		func(d []uint64) bool {
			c := buildCounter(d)
			before := c.Value()
			c.Merge(c)
			return c.Value() == before
		},
		gen.SliceOf(gen.UInt64Range(0, 1000)),
	))

	properties.TestingRun(t)
}

// TestORSetMergeIsIdempotent checks the OR-set's merge idempotence:
// merging a snapshot with itself must not change observable membership.
func TestORSetMergeIsIdempotent(t *testing.T) {
	s := NewORSet[string]()
	s.Add("x", "a", 1)
	s.Add("y", "a", 2)
	s.Remove("x")

	before := s.Values()
	s.Merge(s)
	after := s.Values()

	if len(before) != len(after) {
		t.Fatalf("membership changed after self-merge: %v -> %v", before, after)
	}
	for _, v := range before {
		if !s.Contains(v) {
			t.Fatalf("value %v lost after self-merge", v)
		}
	}
}
