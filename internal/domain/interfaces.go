package domain

import "context"

// Transport fires MPRIS transport commands (Previous, PlayPause, Next) on the
// player. Side effect only; no reply is consumed.
type Transport interface {
	Invoke(method string) error
}

// ViewSink is the optional control surface fed by the status loop.
// Implementations must tolerate Open on an already open surface and Update
// after the surface was closed by the user.
type ViewSink interface {
	// Open shows the surface for the given snapshot. The transport is the
	// live session the surface's buttons call back into.
	Open(snap TrackSnapshot, transport Transport) error

	// Update pushes a fresh snapshot to an open surface.
	Update(snap TrackSnapshot)

	// Active reports whether a surface is currently open.
	Active() bool
}

// Fetcher retrieves album artwork bytes from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
