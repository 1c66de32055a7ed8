package session

import (
	"github.com/godbus/dbus/v5"

	"github.com/undefdev/spotblock/internal/domain"
)

// PropertyChange is a decoded PropertiesChanged payload. Either half may be
// absent: players routinely signal a status flip without restating the
// metadata, and vice versa.
type PropertyChange struct {
	Status      domain.Status
	HasStatus   bool
	Metadata    map[string]dbus.Variant
	HasMetadata bool
}

// DecodePropertiesChanged extracts the changed-properties payload from a
// signal. It reports false for signals that are not a PropertiesChanged on
// the player interface or whose body has an unexpected shape.
func DecodePropertiesChanged(sig *dbus.Signal) (PropertyChange, bool) {
	var change PropertyChange

	if sig.Name != SignalPropertiesChanged || len(sig.Body) < 2 {
		return change, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != PlayerInterface {
		return change, false
	}
	props, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return change, false
	}

	if v, ok := props["PlaybackStatus"]; ok {
		if status, ok := v.Value().(string); ok {
			change.Status = domain.Status(status)
			change.HasStatus = true
		}
	}
	if v, ok := props["Metadata"]; ok {
		if md, ok := v.Value().(map[string]dbus.Variant); ok {
			change.Metadata = md
			change.HasMetadata = true
		}
	}
	return change, true
}

// DecodeNameOwnerChanged extracts (name, oldOwner, newOwner) from a bus
// daemon ownership signal. An owner transition to the empty string means the
// named service left the bus.
func DecodeNameOwnerChanged(sig *dbus.Signal) (name, oldOwner, newOwner string, ok bool) {
	if sig.Name != SignalNameOwnerChanged || len(sig.Body) < 3 {
		return "", "", "", false
	}
	name, nameOK := sig.Body[0].(string)
	oldOwner, oldOK := sig.Body[1].(string)
	newOwner, newOK := sig.Body[2].(string)
	if !nameOK || !oldOK || !newOK {
		return "", "", "", false
	}
	return name, oldOwner, newOwner, true
}
