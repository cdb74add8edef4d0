package streamer

import (
	"fmt"
	"strings"
	"time"
)

// pdtLayout is the timestamp format HLS players expect for
// EXT-X-PROGRAM-DATE-TIME: RFC 3339 with millisecond precision.
const pdtLayout = "2006-01-02T15:04:05.000Z07:00"

const targetDuration = 7

// windowEntry is one segment in the currently-published window.
type windowEntry struct {
	CID      string
	Duration float64
}

// BuildPlaylist renders the HLS media playlist text for one tick: header
// with TARGETDURATION before MEDIA-SEQUENCE (§6's exact wire order),
// followed by a PROGRAM-DATE-TIME / EXTINF / URI triple per segment.
//
// firstPDT anchors the first window entry's timestamp; each subsequent
// entry advances by its own duration. This anchors PDT to the segment's
// logical position in the virtual playlist (epoch + sequence*duration)
// rather than wall-clock "now" at publish time — see the PDT open question
// in DESIGN.md.
func BuildPlaylist(sequence uint64, entries []windowEntry, firstPDT time.Time) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", targetDuration)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", sequence)

	ts := firstPDT
	for _, e := range entries {
		fmt.Fprintf(&b, "#EXT-X-PROGRAM-DATE-TIME:%s\n", ts.Format(pdtLayout))
		fmt.Fprintf(&b, "#EXTINF:%s,\n", formatExtinf(e.Duration))
		fmt.Fprintf(&b, "/ipfs/%s\n", e.CID)
		ts = ts.Add(time.Duration(e.Duration * float64(time.Second)))
	}
	return b.String()
}

func formatExtinf(d float64) string {
	return fmt.Sprintf("%.1f", d)
}
