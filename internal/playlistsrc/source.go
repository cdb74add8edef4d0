// Package playlistsrc unifies the two ways the streamer can obtain its
// virtual playlist: a static manifest-derived list, or a capture-mode list
// of segments ingested from an external encoder's HLS playlist, behind a
// single sum-type "playlist source" abstraction rather than two streamer
// copies. Capture mode does not watch the filesystem: cmd/streamer ingests
// the external playlist once at startup, and later changes to it are not
// picked up.
package playlistsrc

// Source is the abstraction the streamer indexes modulo its length; it is
// satisfied by both the manifest-backed static mode and the live-capture
// mode.
type Source interface {
	// Len returns the current length L of the playlist.
	Len() int
	// At returns the CID and duration of the entry at index i, which the
	// caller has already reduced modulo Len().
	At(i int) (cid string, duration float64)
}
