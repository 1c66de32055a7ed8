// Package loop drives the media-status pipeline: it dials the bus, performs
// the initial read, then serializes every signal, render and emit on a single
// goroutine. Reconnect-on-failure policy lives here and nowhere else.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/undefdev/spotblock/internal/config"
	"github.com/undefdev/spotblock/internal/domain"
	"github.com/undefdev/spotblock/internal/format"
	"github.com/undefdev/spotblock/internal/session"
)

const reconnectDelay = time.Second

// Conn is what the loop needs from a live bus session.
type Conn interface {
	domain.Transport

	// Signals is the subscribed signal stream; it closes when the
	// connection dies
	Signals() <-chan *dbus.Signal

	// PlaybackStatus reads the player's current status
	PlaybackStatus() (domain.Status, error)

	// Metadata reads the player's current track metadata
	Metadata() (map[string]dbus.Variant, error)

	// Snapshot reads status and metadata as one decoded snapshot
	Snapshot() (domain.TrackSnapshot, error)

	// Close releases the connection
	Close()
}

// Dialer establishes a fresh Conn. Called once per session, again after
// every disconnect.
type Dialer func() (Conn, error)

// Loop is the single-goroutine dispatcher. All handler state (gate, view
// mirroring) is touched only from Run's goroutine; the sole cross-goroutine
// input is the buffered view-request channel fed by the stdin watcher.
type Loop struct {
	logger    *zap.Logger
	cfg       *config.Config
	formatter *format.Formatter
	gate      *format.Gate
	dial      Dialer
	out       io.Writer
	view      domain.ViewSink
	viewReq   chan string
	backoff   time.Duration
}

// New builds the loop. view may be nil when no control surface is wired.
func New(
	logger *zap.Logger,
	cfg *config.Config,
	formatter *format.Formatter,
	gate *format.Gate,
	dial Dialer,
	out io.Writer,
	view domain.ViewSink,
) *Loop {
	return &Loop{
		logger:    logger,
		cfg:       cfg,
		formatter: formatter,
		gate:      gate,
		dial:      dial,
		out:       out,
		view:      view,
		viewReq:   make(chan string, 1),
		backoff:   reconnectDelay,
	}
}

// ViewRequests is the channel the stdin watcher signals to open the control
// surface. Buffered; senders must not block.
func (l *Loop) ViewRequests() chan<- string {
	return l.viewReq
}

// Run drives sessions until the context is cancelled. In continuous mode a
// session error means a fixed backoff and a redial; with Once set the first
// error is returned to the caller. Cancellation always returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		err := l.runSession(ctx)
		if ctx.Err() != nil {
			l.logger.Info("status loop shutting down")
			return nil
		}
		if err == nil {
			return nil
		}
		if l.cfg.Once {
			return err
		}
		l.logger.Warn("session ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.backoff):
		}
	}
}

// runSession dials, emits the initial line, then dispatches signals until
// the connection dies or the context is cancelled.
func (l *Loop) runSession(ctx context.Context) error {
	l.logger.Info("connecting", zap.String("service", session.BusName))
	conn, err := l.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	// The first visible line must reflect current state, not just future
	// changes. A player that owns the name but cannot answer yet fails the
	// whole connect.
	if err := l.refresh(conn); err != nil {
		return fmt.Errorf("initial read: %w", err)
	}
	l.logger.Info("connected")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case method := <-l.viewReq:
			l.openView(conn, method)
		case sig, ok := <-conn.Signals():
			if !ok {
				return &domain.ConnectionError{Err: errors.New("signal stream closed")}
			}
			l.handleSignal(conn, sig)
		}
	}
}

// refresh reads both properties synchronously and shows the result.
func (l *Loop) refresh(conn Conn) error {
	status, err := conn.PlaybackStatus()
	if err != nil {
		return err
	}
	md, err := conn.Metadata()
	if err != nil {
		return err
	}
	return l.show(status, md)
}

// show renders one snapshot, emits through the gate and mirrors to an open
// control surface.
func (l *Loop) show(status domain.Status, md map[string]dbus.Variant) error {
	snap, err := session.SnapshotFromMetadata(status, md)
	if err != nil {
		return err
	}
	line := l.formatter.Render(snap.Status, snap.Artist, snap.Title)
	if l.gate.ShouldEmit(line) {
		fmt.Fprintln(l.out, line)
	}
	if l.view != nil && l.view.Active() {
		l.view.Update(snap)
	}
	return nil
}

func (l *Loop) handleSignal(conn Conn, sig *dbus.Signal) {
	switch sig.Name {
	case session.SignalNameOwnerChanged:
		name, oldOwner, newOwner, ok := session.DecodeNameOwnerChanged(sig)
		if !ok || name != session.BusName {
			return
		}
		if oldOwner != "" && newOwner == "" {
			// Player exited. A bare line tells the bar nothing is
			// playing; it bypasses the gate and clears it so the next
			// session never suppresses against a stale line.
			fmt.Fprintln(l.out)
			l.gate.Reset()
			l.logger.Info("player left the bus")
		}

	case session.SignalPropertiesChanged:
		change, ok := session.DecodePropertiesChanged(sig)
		if !ok {
			return
		}
		status, md, err := l.completeChange(conn, change)
		if err != nil {
			l.logger.Warn("skipping change event", zap.Error(err))
			return
		}
		if err := l.show(status, md); err != nil {
			l.logger.Warn("skipping update", zap.Error(err))
		}
	}
}

// completeChange fills in whichever half of the payload the player omitted
// by re-reading it synchronously.
func (l *Loop) completeChange(conn Conn, change session.PropertyChange) (domain.Status, map[string]dbus.Variant, error) {
	status := change.Status
	md := change.Metadata

	if !change.HasStatus {
		l.logger.Debug("sparse change event",
			zap.Error(&domain.IncompletePropertyEventError{Missing: "PlaybackStatus"}))
		var err error
		if status, err = conn.PlaybackStatus(); err != nil {
			return status, md, err
		}
	}
	if !change.HasMetadata {
		l.logger.Debug("sparse change event",
			zap.Error(&domain.IncompletePropertyEventError{Missing: "Metadata"}))
		var err error
		if md, err = conn.Metadata(); err != nil {
			return status, md, err
		}
	}
	return status, md, nil
}

// openView reads a fresh snapshot and hands it to the control surface. Any
// failure here is logged and dropped; the surface is best effort.
func (l *Loop) openView(conn Conn, trigger string) {
	if l.view == nil {
		return
	}
	l.logger.Debug("view requested", zap.String("method", trigger))

	snap, err := conn.Snapshot()
	if err != nil {
		l.logger.Warn("cannot open view", zap.Error(err))
		return
	}

	if l.view.Active() {
		l.view.Update(snap)
		return
	}
	if err := l.view.Open(snap, conn); err != nil {
		l.logger.Warn("control surface failed to open", zap.Error(err))
	}
}
