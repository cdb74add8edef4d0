package playlistsrc

import (
	"os"
	"path/filepath"
	"testing"
)

const externalFixture = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PROGRAM-DATE-TIME:2026-07-31T00:00:00.000Z
#EXTINF:6.000,cidOne
seg-0.ts
#EXTINF:6.000,cidTwo
seg-1.ts
`

func TestIngestExternalPlaylist(t *testing.T) {
	dir := t.TempDir()
	playlistPath := filepath.Join(dir, "external.m3u8")
	if err := os.WriteFile(playlistPath, []byte(externalFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	dst, err := NewCaptureSource(filepath.Join(dir, "segment_state.json"), "default", 0)
	if err != nil {
		t.Fatalf("NewCaptureSource: %v", err)
	}

	seen, err := IngestExternalPlaylist(playlistPath, "default", dst)
	if err != nil {
		t.Fatalf("IngestExternalPlaylist: %v", err)
	}
	if seen != 2 {
		t.Fatalf("expected 2 segments ingested, got %d", seen)
	}
	if dst.Len() != 2 {
		t.Fatalf("expected 2 entries in the capture source, got %d", dst.Len())
	}

	cid, dur := dst.At(0)
	if cid != "cidOne" || dur != 6 {
		t.Errorf("entry 0: got (%q, %v)", cid, dur)
	}
	cid, dur = dst.At(1)
	if cid != "cidTwo" || dur != 6 {
		t.Errorf("entry 1: got (%q, %v)", cid, dur)
	}
}

func TestIngestExternalPlaylistMissingFile(t *testing.T) {
	dir := t.TempDir()
	dst, err := NewCaptureSource(filepath.Join(dir, "segment_state.json"), "default", 0)
	if err != nil {
		t.Fatalf("NewCaptureSource: %v", err)
	}
	if _, err := IngestExternalPlaylist(filepath.Join(dir, "missing.m3u8"), "default", dst); err == nil {
		t.Fatal("expected an error for a missing playlist file")
	}
}
