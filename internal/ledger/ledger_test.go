package ledger

import (
	"sort"
	"testing"
)

func TestMemoryAddIdempotent(t *testing.T) {
	t.Parallel()
	l := NewMemory()
	if l.Contains("a") {
		t.Fatal("empty ledger reports a key")
	}
	l.Add("a")
	l.Add("a")
	l.Add("b")
	if !l.Contains("a") || !l.Contains("b") {
		t.Fatal("expected both keys present")
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	keys := l.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestMemoryZeroValue(t *testing.T) {
	t.Parallel()
	var l Memory
	if l.Contains("a") || l.Len() != 0 {
		t.Fatal("zero ledger should be empty")
	}
	l.Add("a")
	if !l.Contains("a") || l.Len() != 1 {
		t.Fatalf("Add on zero value: Len = %d", l.Len())
	}
}
