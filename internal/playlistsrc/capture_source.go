package playlistsrc

import (
	"sort"
	"sync"
	"time"

	"github.com/meshcast/meshcast/internal/diskstate"
)

// CapturedSegment is one entry in the live-capture segment state: a segment
// uploaded by an external HLS encoder in real time rather than produced by
// the setup processor.
type CapturedSegment struct {
	Filename  string    `json:"filename"`
	CID       string    `json:"cid"`
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// SegmentState is the persistent {quality -> {filename -> record}} document
// driving both CaptureSource and component F's cleanup in live-capture mode.
type SegmentState struct {
	Qualities map[string]map[string]CapturedSegment `json:"qualities"`
}

// CaptureSource is the live-capture-mode Source: an in-memory, timestamp-
// ordered view over one quality bucket of a SegmentState, bounded to
// maxSegments.
//
// Persistence is write-behind with a bounded delay rather than on every
// append — the reference implementation's SegmentState.add_segment saves on
// every append, which dominates cost at high segment-production rates; this
// batches writes instead (see the Open Questions reconciliation in
// DESIGN.md).
type CaptureSource struct {
	mu          sync.Mutex
	quality     string
	statePath   string
	maxSegments int
	ordered     []CapturedSegment
	dirty       bool
}

// NewCaptureSource constructs a CaptureSource for one quality bucket,
// loading any existing state from statePath.
func NewCaptureSource(statePath, quality string, maxSegments int) (*CaptureSource, error) {
	cs := &CaptureSource{statePath: statePath, quality: quality, maxSegments: maxSegments}

	var state SegmentState
	if err := diskstate.ReadJSON(statePath, &state); err == nil && state.Qualities != nil {
		if bucket, ok := state.Qualities[quality]; ok {
			for _, rec := range bucket {
				cs.ordered = append(cs.ordered, rec)
			}
			sort.Slice(cs.ordered, func(i, j int) bool {
				return cs.ordered[i].Timestamp.Before(cs.ordered[j].Timestamp)
			})
		}
	}
	return cs, nil
}

// Add records a newly-captured segment, trimming the oldest entry if the
// bucket exceeds maxSegments. The change is buffered; call FlushIfDirty
// (typically on a timer) to persist.
func (cs *CaptureSource) Add(rec CapturedSegment) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.ordered = append(cs.ordered, rec)
	sort.Slice(cs.ordered, func(i, j int) bool {
		return cs.ordered[i].Timestamp.Before(cs.ordered[j].Timestamp)
	})
	if cs.maxSegments > 0 && len(cs.ordered) > cs.maxSegments {
		cs.ordered = cs.ordered[len(cs.ordered)-cs.maxSegments:]
	}
	cs.dirty = true
}

// Remove drops the named segment from the in-memory view, marking the
// bucket dirty for the next flush.
func (cs *CaptureSource) Remove(filename string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for i, rec := range cs.ordered {
		if rec.Filename == filename {
			cs.ordered = append(cs.ordered[:i], cs.ordered[i+1:]...)
			cs.dirty = true
			return
		}
	}
}

// Snapshot returns a copy of the current ordered segment list, e.g. for the
// cleanup component to evaluate retention against.
func (cs *CaptureSource) Snapshot() []CapturedSegment {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]CapturedSegment, len(cs.ordered))
	copy(out, cs.ordered)
	return out
}

// FlushIfDirty persists the bucket if it has changed since the last flush.
// Intended to be called from a bounded-delay ticker rather than after every
// Add.
func (cs *CaptureSource) FlushIfDirty() error {
	cs.mu.Lock()
	if !cs.dirty {
		cs.mu.Unlock()
		return nil
	}
	cs.dirty = false
	bucket := make(map[string]CapturedSegment, len(cs.ordered))
	for _, rec := range cs.ordered {
		bucket[rec.Filename] = rec
	}
	cs.mu.Unlock()

	var state SegmentState
	_ = diskstate.ReadJSON(cs.statePath, &state)
	if state.Qualities == nil {
		state.Qualities = make(map[string]map[string]CapturedSegment)
	}
	state.Qualities[cs.quality] = bucket
	return diskstate.WriteJSON(cs.statePath, &state)
}

// Len implements Source.
func (cs *CaptureSource) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.ordered)
}

// At implements Source.
func (cs *CaptureSource) At(i int) (string, float64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	rec := cs.ordered[i]
	return rec.CID, rec.Duration
}
