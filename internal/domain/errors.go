package domain

import "fmt"

// ConfigurationError reports a bad template or filter reference. It is fatal
// at startup and never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ConnectionError reports that the session bus is unreachable or the player
// service cannot be resolved. The continuous-run loop retries it with a fixed
// backoff; single-run mode treats it as terminal.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "bus connection failed: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PropertyUnavailableError reports a failed synchronous property read.
type PropertyUnavailableError struct {
	Property string
	Err      error
}

func (e *PropertyUnavailableError) Error() string {
	return fmt.Sprintf("property %s unavailable: %v", e.Property, e.Err)
}

func (e *PropertyUnavailableError) Unwrap() error { return e.Err }

// MetadataFieldMissingError reports a metadata map that lacks a field the
// status line needs. The event is skipped; the loop keeps running.
type MetadataFieldMissingError struct {
	Field string
}

func (e *MetadataFieldMissingError) Error() string {
	return "metadata field missing: " + e.Field
}

// IncompletePropertyEventError reports a PropertiesChanged payload that
// carried only one of PlaybackStatus and Metadata. The handler falls back to
// re-reading the missing property instead of failing the event.
type IncompletePropertyEventError struct {
	Missing string
}

func (e *IncompletePropertyEventError) Error() string {
	return "change event missing " + e.Missing
}
