// Package manifest holds the data model shared by the setup processor and
// the streamer: segments, tracks, the manifest document, and the flattened
// virtual playlist derived from it.
package manifest

import "time"

// Kind distinguishes a regular track from an interstitial jingle.
type Kind string

const (
	KindTrack  Kind = "track"
	KindJingle Kind = "jingle"
)

// Segment is one immutable, pinned audio chunk.
type Segment struct {
	Filename        string    `json:"filename"`
	CID             string    `json:"cid"`
	ByteSize        int64     `json:"byte_size"`
	DurationSeconds float64   `json:"duration_seconds"`
	NodeID          string    `json:"node_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Track is an ordered sequence of Segments produced from one source file.
type Track struct {
	Filename string    `json:"filename"`
	Kind     Kind      `json:"kind"`
	BaseName string    `json:"base_name"`
	Title    string    `json:"title,omitempty"`
	Artist   string    `json:"artist,omitempty"`
	Album    string    `json:"album,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
	Segments []Segment `json:"segments"`
}

// AudioParams records the transcoding parameters a manifest was built with.
type AudioParams struct {
	SegmentDuration float64 `json:"segment_duration"`
	Bitrate         int     `json:"bitrate"`
	Codec           string  `json:"codec"`
}

// JinglesParams records jingle interleave parameters.
type JinglesParams struct {
	Enabled bool   `json:"enabled"`
	Source  string `json:"source"`
	Cycle   int    `json:"cycle"`
}

// Manifest is the persistent, one-to-one-with-config record produced by the
// setup processor.
type Manifest struct {
	ConfigHash    string        `json:"config_hash"`
	CreatedAt     time.Time     `json:"created_at"`
	Tracks        []Track       `json:"tracks"`
	Jingles       []Track       `json:"jingles"`
	AudioParams   AudioParams   `json:"audio_params"`
	JinglesParams JinglesParams `json:"jingles_params"`
}

// VirtualPlaylist is the flattened, ordered sequence of CIDs the streamer
// indexes modulo its length. Durations are carried alongside for EXTINF
// emission without needing to walk the manifest at tick time.
type VirtualPlaylist struct {
	CIDs      []string  `json:"cids"`
	Durations []float64 `json:"durations"`
}

// Len reports the number of entries, used as L in the streamer's modulo
// indexing.
func (vp *VirtualPlaylist) Len() int { return len(vp.CIDs) }

// Build flattens tracks and jingles into a VirtualPlaylist per the
// interleave rule in §4.C.7: after processing the t-th track (0-indexed,
// t > 0) where t mod cycle == 0, insert jingles[j mod J] and increment j.
func Build(m *Manifest) VirtualPlaylist {
	var vp VirtualPlaylist
	appendTrack := func(t Track) {
		for _, seg := range t.Segments {
			vp.CIDs = append(vp.CIDs, seg.CID)
			vp.Durations = append(vp.Durations, seg.DurationSeconds)
		}
	}

	cycle := m.JinglesParams.Cycle
	useJingles := m.JinglesParams.Enabled && len(m.Jingles) > 0 && cycle >= 1
	jingleIdx := 0

	for t, track := range m.Tracks {
		if useJingles && t > 0 && t%cycle == 0 {
			appendTrack(m.Jingles[jingleIdx%len(m.Jingles)])
			jingleIdx++
		}
		appendTrack(track)
	}
	return vp
}
