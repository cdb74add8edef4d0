package playlistsrc

import (
	"fmt"
	"os"

	"github.com/mogiioin/hls-m3u8/m3u8"
)

// IngestExternalPlaylist parses a conformant HLS media playlist written by
// an external encoder — the actual input to the live-capture alternative in
// §9, where segments are "produced by an external HLS encoder in real
// time" rather than by the setup processor — and feeds every segment it
// lists into dst; segments already in dst are not skipped. Unlike ManifestSource (which scans the setup
// processor's own minimal internal format by hand), this is a real,
// conformant third-party playlist, so it is parsed with
// github.com/mogiioin/hls-m3u8 rather than a bespoke scanner.
func IngestExternalPlaylist(path, quality string, dst *CaptureSource) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	playlist, listType, err := m3u8.DecodeFrom(f, false)
	if err != nil {
		return 0, fmt.Errorf("playlistsrc: decode external playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return 0, fmt.Errorf("playlistsrc: expected a media playlist, got list type %v", listType)
	}
	mp, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return 0, fmt.Errorf("playlistsrc: unexpected playlist type %T", playlist)
	}

	seen := 0
	for _, seg := range mp.Segments {
		if seg == nil {
			continue
		}
		dst.Add(CapturedSegment{
			Filename:  seg.URI,
			CID:       seg.Title, // the encoder-side pipeline stamps the CID into the EXTINF title field
			Duration:  seg.Duration,
			Timestamp: seg.ProgramDateTime,
		})
		seen++
	}
	return seen, nil
}
