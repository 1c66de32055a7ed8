// Package session owns the connection to the D-Bus session bus and the
// subscriptions on the watched player: PropertiesChanged on the player
// object and NameOwnerChanged for the player's well-known name.
package session

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/undefdev/spotblock/internal/domain"
)

// MPRIS wire constants for the watched player. These are protocol fixtures,
// not configuration.
const (
	BusName             = "org.mpris.MediaPlayer2.spotify"
	ObjectPath          = "/org/mpris/MediaPlayer2"
	PlayerInterface     = "org.mpris.MediaPlayer2.Player"
	PropertiesInterface = "org.freedesktop.DBus.Properties"

	// SignalPropertiesChanged is the full name of the property-change signal
	SignalPropertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	// SignalNameOwnerChanged is the full name of the bus daemon's
	// ownership-change signal
	SignalNameOwnerChanged = "org.freedesktop.DBus.NameOwnerChanged"
)

const signalBuffer = 16

// Session is a live connection to the bus with both player subscriptions
// established. It is owned by the status loop and rebuilt on every reconnect.
type Session struct {
	logger  *zap.Logger
	conn    DBusClient
	signals chan *dbus.Signal
}

// Dial connects to the session bus and builds a Session on it.
func Dial(logger *zap.Logger) (*Session, error) {
	conn, err := NewStdDBusClient()
	if err != nil {
		return nil, &domain.ConnectionError{Err: err}
	}
	s, err := New(conn, logger)
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.Warn("failed to close D-Bus connection", zap.Error(cerr))
		}
		return nil, err
	}
	return s, nil
}

// New wires the player subscriptions on an existing client. It fails with a
// ConnectionError when the player does not currently own its well-known
// name, so a missing player surfaces at connect time rather than on the
// first read.
func New(conn DBusClient, logger *zap.Logger) (*Session, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchSender(BusName),
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(PropertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return nil, &domain.ConnectionError{Err: fmt.Errorf("subscribe to property changes: %w", err)}
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, BusName),
	); err != nil {
		return nil, &domain.ConnectionError{Err: fmt.Errorf("subscribe to owner changes: %w", err)}
	}

	owner, err := conn.GetNameOwner(BusName)
	if err != nil {
		return nil, &domain.ConnectionError{Err: fmt.Errorf("resolve %s: %w", BusName, err)}
	}
	logger.Debug("player resolved", zap.String("name", BusName), zap.String("owner", owner))

	s := &Session{
		logger:  logger,
		conn:    conn,
		signals: make(chan *dbus.Signal, signalBuffer),
	}
	conn.Signal(s.signals)
	return s, nil
}

// Signals returns the subscribed signal stream. godbus closes the channel
// when the underlying connection dies, which the loop treats as a
// disconnect.
func (s *Session) Signals() <-chan *dbus.Signal {
	return s.signals
}

// ReadProperty reads one player property (PlaybackStatus, Metadata)
// synchronously.
func (s *Session) ReadProperty(name string) (dbus.Variant, error) {
	v, err := s.conn.GetProperty(BusName, ObjectPath, PlayerInterface+"."+name)
	if err != nil {
		return dbus.Variant{}, &domain.PropertyUnavailableError{Property: name, Err: err}
	}
	return v, nil
}

// PlaybackStatus reads the player's current playback status.
func (s *Session) PlaybackStatus() (domain.Status, error) {
	v, err := s.ReadProperty("PlaybackStatus")
	if err != nil {
		return "", err
	}
	str, ok := v.Value().(string)
	if !ok {
		return "", &domain.PropertyUnavailableError{
			Property: "PlaybackStatus",
			Err:      fmt.Errorf("unexpected type %T", v.Value()),
		}
	}
	return domain.Status(str), nil
}

// Metadata reads the player's current track metadata map.
func (s *Session) Metadata() (map[string]dbus.Variant, error) {
	v, err := s.ReadProperty("Metadata")
	if err != nil {
		return nil, err
	}
	md, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, &domain.PropertyUnavailableError{
			Property: "Metadata",
			Err:      fmt.Errorf("unexpected type %T", v.Value()),
		}
	}
	return md, nil
}

// Snapshot reads status and metadata and decodes them into one snapshot.
func (s *Session) Snapshot() (domain.TrackSnapshot, error) {
	status, err := s.PlaybackStatus()
	if err != nil {
		return domain.TrackSnapshot{}, err
	}
	md, err := s.Metadata()
	if err != nil {
		return domain.TrackSnapshot{}, err
	}
	return SnapshotFromMetadata(status, md)
}

// Invoke fires a transport command (Previous, PlayPause, Next) on the player.
func (s *Session) Invoke(method string) error {
	if err := s.conn.Call(BusName, ObjectPath, PlayerInterface+"."+method); err != nil {
		return fmt.Errorf("invoke %s: %w", method, err)
	}
	s.logger.Debug("transport command sent", zap.String("method", method))
	return nil
}

// Close tears the session down. The signal channel is unregistered first so
// godbus stops writing to it.
func (s *Session) Close() {
	s.conn.RemoveSignal(s.signals)
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("failed to close D-Bus connection", zap.Error(err))
	}
}
