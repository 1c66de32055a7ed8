package loop

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/undefdev/spotblock/internal/config"
	"github.com/undefdev/spotblock/internal/domain"
	"github.com/undefdev/spotblock/internal/format"
	"github.com/undefdev/spotblock/internal/session"
)

// fakeConn is a scripted bus session. Fields are set before the loop starts
// and never mutated afterwards; signals are injected through the channel.
type fakeConn struct {
	signals chan *dbus.Signal
	status  domain.Status
	md      map[string]dbus.Variant
	invoked []string
	closed  atomic.Bool
}

func newFakeConn(status domain.Status, md map[string]dbus.Variant) *fakeConn {
	return &fakeConn{
		signals: make(chan *dbus.Signal, 8),
		status:  status,
		md:      md,
	}
}

func (c *fakeConn) Signals() <-chan *dbus.Signal              { return c.signals }
func (c *fakeConn) PlaybackStatus() (domain.Status, error)    { return c.status, nil }
func (c *fakeConn) Metadata() (map[string]dbus.Variant, error) { return c.md, nil }
func (c *fakeConn) Snapshot() (domain.TrackSnapshot, error) {
	return session.SnapshotFromMetadata(c.status, c.md)
}

func (c *fakeConn) Invoke(method string) error {
	c.invoked = append(c.invoked, method)
	return nil
}
func (c *fakeConn) Close() { c.closed.Store(true) }

// lineWriter turns each Fprintln into one received string, newline stripped.
type lineWriter struct {
	lines chan string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.lines <- strings.TrimSuffix(string(p), "\n")
	return len(p), nil
}

// fakeView records Open/Update calls from the loop.
type fakeView struct {
	opened  chan domain.TrackSnapshot
	updated chan domain.TrackSnapshot
	active  atomic.Bool
}

func newFakeView() *fakeView {
	return &fakeView{
		opened:  make(chan domain.TrackSnapshot, 4),
		updated: make(chan domain.TrackSnapshot, 4),
	}
}

func (v *fakeView) Open(snap domain.TrackSnapshot, _ domain.Transport) error {
	v.active.Store(true)
	v.opened <- snap
	return nil
}

func (v *fakeView) Update(snap domain.TrackSnapshot) { v.updated <- snap }
func (v *fakeView) Active() bool                     { return v.active.Load() }

func metadataMap(artists []string, title string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"xesam:artist": dbus.MakeVariant(artists),
		"xesam:title":  dbus.MakeVariant(title),
	}
}

func propsSignal(status string, md map[string]dbus.Variant) *dbus.Signal {
	props := map[string]dbus.Variant{}
	if status != "" {
		props["PlaybackStatus"] = dbus.MakeVariant(status)
	}
	if md != nil {
		props["Metadata"] = dbus.MakeVariant(md)
	}
	return &dbus.Signal{
		Name: session.SignalPropertiesChanged,
		Body: []interface{}{session.PlayerInterface, props, []string{}},
	}
}

func ownerGoneSignal() *dbus.Signal {
	return &dbus.Signal{
		Name: session.SignalNameOwnerChanged,
		Body: []interface{}{session.BusName, ":1.50", ""},
	}
}

func newTestLoop(t *testing.T, cfg *config.Config, dial Dialer, view domain.ViewSink) (*Loop, chan string) {
	t.Helper()
	formatter, err := format.New(cfg.Format, nil, cfg.MarkupEscape)
	if err != nil {
		t.Fatalf("compile format: %v", err)
	}
	out := &lineWriter{lines: make(chan string, 16)}
	l := New(zap.NewNop(), cfg, formatter, format.NewGate(cfg.Dedupe), dial, out, view)
	l.backoff = time.Millisecond
	return l, out.lines
}

func expectLine(t *testing.T, lines chan string, want string) {
	t.Helper()
	select {
	case got := <-lines:
		if got != want {
			t.Fatalf("expected line %q, got %q", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for line %q", want)
	}
}

func expectNoLine(t *testing.T, lines chan string) {
	t.Helper()
	select {
	case got := <-lines:
		t.Fatalf("unexpected line %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunEmitsInitialLineAndDedupes(t *testing.T) {
	md := metadataMap([]string{"A", "B"}, "T")
	conn := newFakeConn(domain.StatusPlaying, md)
	l, lines := newTestLoop(t, config.Defaults(), func() (Conn, error) { return conn, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	// first visible line reflects the synchronous initial read
	expectLine(t, lines, "A, B – T")

	// identical change event is suppressed
	conn.signals <- propsSignal("Playing", md)
	expectNoLine(t, lines)

	// a real change emits
	conn.signals <- propsSignal("Playing", metadataMap([]string{"A", "B"}, "U"))
	expectLine(t, lines, "A, B – U")

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("cancelled run should return nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunPlayerExitEmitsBlankAndResetsGate(t *testing.T) {
	md := metadataMap([]string{"A"}, "T")
	conn := newFakeConn(domain.StatusPlaying, md)
	l, lines := newTestLoop(t, config.Defaults(), func() (Conn, error) { return conn, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – T")

	conn.signals <- ownerGoneSignal()
	expectLine(t, lines, "")

	// the same line again must not be suppressed after the reset
	conn.signals <- propsSignal("Playing", md)
	expectLine(t, lines, "A – T")
}

func TestRunSparseEventFallsBackToRead(t *testing.T) {
	// the conn's own properties are what the fallback read returns
	conn := newFakeConn(domain.StatusPaused, metadataMap([]string{"A"}, "FromRead"))
	l, lines := newTestLoop(t, config.Defaults(), func() (Conn, error) { return conn, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – FromRead")

	conn.signals <- propsSignal("Playing", metadataMap([]string{"A"}, "FromSignal"))
	expectLine(t, lines, "A – FromSignal")

	// status-only event: metadata comes from the synchronous re-read
	conn.signals <- propsSignal("Stopped", nil)
	expectLine(t, lines, "A – FromRead")
}

func TestRunDedupeDisabledEmitsEverything(t *testing.T) {
	cfg := config.Defaults()
	cfg.Dedupe = false
	md := metadataMap([]string{"A"}, "T")
	conn := newFakeConn(domain.StatusPlaying, md)
	l, lines := newTestLoop(t, cfg, func() (Conn, error) { return conn, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – T")
	conn.signals <- propsSignal("Playing", md)
	expectLine(t, lines, "A – T")
	conn.signals <- propsSignal("Playing", md)
	expectLine(t, lines, "A – T")
}

func TestRunOnceConnectFailureIsTerminal(t *testing.T) {
	cfg := config.Defaults()
	cfg.Once = true
	dialErr := &domain.ConnectionError{Err: errors.New("bus down")}
	l, _ := newTestLoop(t, cfg, func() (Conn, error) { return nil, dialErr }, nil)

	err := l.Run(context.Background())

	var connErr *domain.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected the dial error to propagate, got %v", err)
	}
}

func TestRunReconnectsAfterDialFailure(t *testing.T) {
	conn := newFakeConn(domain.StatusPlaying, metadataMap([]string{"A"}, "T"))
	var attempts atomic.Int32
	dial := func() (Conn, error) {
		if attempts.Add(1) == 1 {
			return nil, &domain.ConnectionError{Err: errors.New("bus down")}
		}
		return conn, nil
	}
	l, lines := newTestLoop(t, config.Defaults(), dial, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – T")
	if got := attempts.Load(); got != 2 {
		t.Errorf("expected 2 dial attempts, got %d", got)
	}
}

func TestRunReconnectsWhenSignalStreamCloses(t *testing.T) {
	first := newFakeConn(domain.StatusPlaying, metadataMap([]string{"A"}, "T1"))
	second := newFakeConn(domain.StatusPlaying, metadataMap([]string{"A"}, "T2"))
	conns := []*fakeConn{first, second}
	var attempts atomic.Int32
	dial := func() (Conn, error) {
		return conns[attempts.Add(1)-1], nil
	}
	l, lines := newTestLoop(t, config.Defaults(), dial, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – T1")

	// bus connection dies; godbus closes the channel
	close(first.signals)

	expectLine(t, lines, "A – T2")
	if !first.closed.Load() {
		t.Error("dead session should have been closed")
	}
}

func TestRunKeepsGateAcrossReconnect(t *testing.T) {
	// the player is still running after a bus-level redial, so an unchanged
	// track must stay suppressed; only a player exit clears the gate
	md := metadataMap([]string{"A"}, "T")
	first := newFakeConn(domain.StatusPlaying, md)
	second := newFakeConn(domain.StatusPlaying, md)
	conns := []*fakeConn{first, second}
	var attempts atomic.Int32
	dial := func() (Conn, error) {
		return conns[attempts.Add(1)-1], nil
	}
	l, lines := newTestLoop(t, config.Defaults(), dial, nil)

	// queued behind the second session's initial read; identical, so both
	// must be swallowed by the surviving gate
	second.signals <- propsSignal("Playing", md)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – T")

	close(first.signals)
	expectNoLine(t, lines)

	// the second session is live: a real change still gets through
	second.signals <- propsSignal("Playing", metadataMap([]string{"A"}, "U"))
	expectLine(t, lines, "A – U")
}

func TestRunOpensViewOnRequest(t *testing.T) {
	conn := newFakeConn(domain.StatusPlaying, metadataMap([]string{"A"}, "T"))
	view := newFakeView()
	l, lines := newTestLoop(t, config.Defaults(), func() (Conn, error) { return conn, nil }, view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	expectLine(t, lines, "A – T")

	l.ViewRequests() <- "PlayPause"
	select {
	case snap := <-view.opened:
		if snap.Artist != "A" || snap.Title != "T" {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("view was not opened")
	}

	// once open, fresh state is mirrored to the surface
	conn.signals <- propsSignal("Paused", metadataMap([]string{"A"}, "U"))
	expectLine(t, lines, "A – U")
	select {
	case snap := <-view.updated:
		if snap.Title != "U" || snap.Status != domain.StatusPaused {
			t.Errorf("unexpected update: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("view was not updated")
	}
}
