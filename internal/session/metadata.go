package session

import (
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/undefdev/spotblock/internal/domain"
)

const artBaseURL = "https://i.scdn.co/image/"

// SnapshotFromMetadata decodes an MPRIS metadata map into a snapshot. Artist
// and title are required for the status line; their absence fails the whole
// event. Album and art URL only feed the control surface and stay empty when
// the player does not report them.
func SnapshotFromMetadata(status domain.Status, md map[string]dbus.Variant) (domain.TrackSnapshot, error) {
	snap := domain.TrackSnapshot{Status: status}

	artistVar, ok := md["xesam:artist"]
	if !ok {
		return snap, &domain.MetadataFieldMissingError{Field: "xesam:artist"}
	}
	switch artists := artistVar.Value().(type) {
	case []string:
		snap.Artist = strings.Join(artists, ", ")
	case string:
		// Some non-compliant players report a bare string
		snap.Artist = artists
	default:
		return snap, &domain.MetadataFieldMissingError{Field: "xesam:artist"}
	}

	titleVar, ok := md["xesam:title"]
	if !ok {
		return snap, &domain.MetadataFieldMissingError{Field: "xesam:title"}
	}
	title, ok := titleVar.Value().(string)
	if !ok {
		return snap, &domain.MetadataFieldMissingError{Field: "xesam:title"}
	}
	snap.Title = title

	if v, ok := md["xesam:album"]; ok {
		if album, ok := v.Value().(string); ok {
			snap.Album = album
		}
	}
	if v, ok := md["mpris:artUrl"]; ok {
		if url, ok := v.Value().(string); ok && url != "" {
			snap.ArtURL = RewriteArtURL(url)
		}
	}

	return snap, nil
}

// RewriteArtURL points an album art URL at the CDN. Spotify moved cover
// images off its legacy host without updating what MPRIS reports, so the
// image id (the last path segment) is kept and the base swapped. Applying it
// to an already rewritten URL is a no-op.
func RewriteArtURL(url string) string {
	id := url[strings.LastIndexByte(url, '/')+1:]
	return artBaseURL + id
}
