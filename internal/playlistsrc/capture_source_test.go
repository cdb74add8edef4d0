package playlistsrc

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCaptureSourceBoundedAndOrdered(t *testing.T) {
	dir := t.TempDir()
	cs, err := NewCaptureSource(filepath.Join(dir, "segment_state.json"), "default", 3)
	if err != nil {
		t.Fatalf("NewCaptureSource: %v", err)
	}

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		cs.Add(CapturedSegment{
			Filename:  string(rune('a' + i)),
			CID:       "cid" + string(rune('a'+i)),
			Duration:  6,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	if cs.Len() != 3 {
		t.Fatalf("expected bounded length 3, got %d", cs.Len())
	}
	cid, _ := cs.At(0)
	if cid != "cidc" {
		t.Fatalf("expected oldest-retained entry cidc, got %q", cid)
	}

	if err := cs.FlushIfDirty(); err != nil {
		t.Fatalf("FlushIfDirty: %v", err)
	}

	cs2, err := NewCaptureSource(filepath.Join(dir, "segment_state.json"), "default", 3)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cs2.Len() != 3 {
		t.Fatalf("expected persisted length 3 after reload, got %d", cs2.Len())
	}
}
