package crdt

import "testing"

func TestLWWMapActorTieBreak(t *testing.T) {
	m := NewLWWMap[string, string]()
	m.Set("k", "from-a", 100, "actor-a")
	m.Set("k", "from-b", 100, "actor-b")
	got, ok := m.Get("k")
	if !ok || got != "from-b" {
		t.Fatalf("expected actor-b (lexically greater) to win tie, got %q", got)
	}
}

func TestLWWMapHigherTimestampWins(t *testing.T) {
	m := NewLWWMap[string, string]()
	m.Set("k", "old", 1, "z")
	m.Set("k", "new", 2, "a")
	got, _ := m.Get("k")
	if got != "new" {
		t.Fatalf("expected higher timestamp to win regardless of actor, got %q", got)
	}
}

func TestORSetAddRemoveConcurrent(t *testing.T) {
	s := NewORSet[string]()
	s.Add("v", "a", 1)
	s.Remove("v")
	if s.Contains("v") {
		t.Fatal("expected v removed")
	}
	// A concurrent add with a fresh tag survives the prior remove.
	s.Add("v", "b", 2)
	if !s.Contains("v") {
		t.Fatal("expected fresh add to resurrect v")
	}
}

func TestGCounterSaturatesOnOverflow(t *testing.T) {
	c := NewGCounter()
	c.Increment("a", ^uint64(0))
	c.Increment("a", 10)
	if c.Value() != ^uint64(0) {
		t.Fatalf("expected saturation, got %d", c.Value())
	}
}

func TestPNCounterValue(t *testing.T) {
	c := NewPNCounter()
	c.Increment("a", 100)
	c.Decrement("a", 30)
	if c.Value() != 70 {
		t.Fatalf("expected 70, got %d", c.Value())
	}
}
