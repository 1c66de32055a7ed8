package domain

// Status is the MPRIS PlaybackStatus property value. Well-behaved players
// report one of the three constants below, but the bus does not enforce it,
// so the type stays an open string.
type Status string

const (
	// StatusPlaying indicates the player is currently playing
	StatusPlaying Status = "Playing"
	// StatusPaused indicates the player is paused
	StatusPaused Status = "Paused"
	// StatusStopped indicates the player is stopped
	StatusStopped Status = "Stopped"
)

// TrackSnapshot is the state of the player at one point in time. It is
// rebuilt wholesale from the latest metadata read and never patched in place.
type TrackSnapshot struct {
	// Status is the current playback status
	Status Status
	// Artist holds all track artists joined with ", "
	Artist string
	// Title of the current track
	Title string
	// Album name, empty when the player does not report one
	Album string
	// ArtURL points at the album cover, already rewritten to the
	// canonical image host; empty when the player reports none
	ArtURL string
}
