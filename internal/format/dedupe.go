package format

// Gate suppresses re-emission of an identical rendered line. It retains at
// most one previous line and is only ever touched from the dispatch
// goroutine, so it needs no locking.
type Gate struct {
	enabled bool
	last    string
	seen    bool
}

// NewGate returns a gate. A disabled gate lets everything through and stores
// nothing.
func NewGate(enabled bool) *Gate {
	return &Gate{enabled: enabled}
}

// ShouldEmit reports whether line differs from the last emitted one. The
// first call after construction or Reset always emits. On true the line
// becomes the new comparison value.
func (g *Gate) ShouldEmit(line string) bool {
	if !g.enabled {
		return true
	}
	if g.seen && g.last == line {
		return false
	}
	g.last = line
	g.seen = true
	return true
}

// Reset forgets the stored line. Called when the player leaves the bus so the
// next session never has a stale line suppressed against it.
func (g *Gate) Reset() {
	g.last = ""
	g.seen = false
}
