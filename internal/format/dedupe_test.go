package format

import "testing"

func TestGateSuppressesRepeats(t *testing.T) {
	g := NewGate(true)

	var emitted []string
	for _, line := range []string{"A", "A", "B", "A"} {
		if g.ShouldEmit(line) {
			emitted = append(emitted, line)
		}
	}

	expected := []string{"A", "B", "A"}
	if len(emitted) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, emitted)
	}
	for i := range expected {
		if emitted[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, emitted)
		}
	}
}

func TestGateDisabled(t *testing.T) {
	g := NewGate(false)

	count := 0
	for _, line := range []string{"A", "A", "B", "A"} {
		if g.ShouldEmit(line) {
			count++
		}
	}
	if count != 4 {
		t.Errorf("disabled gate suppressed output: %d of 4 emitted", count)
	}
}

func TestGateReset(t *testing.T) {
	g := NewGate(true)

	if !g.ShouldEmit("A") {
		t.Fatal("first line must emit")
	}
	if g.ShouldEmit("A") {
		t.Fatal("repeat must be suppressed")
	}

	g.Reset()

	if !g.ShouldEmit("A") {
		t.Error("repeat after reset must emit")
	}
}
