package playlistsrc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifestSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playlist.m3u")
	content := "#EXTINF:6,\n/ipfs/cidA\n#EXTINF:6,\n/ipfs/cidB\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := LoadManifestSource(path)
	if err != nil {
		t.Fatalf("LoadManifestSource: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", src.Len())
	}
	cid, dur := src.At(0)
	if cid != "cidA" || dur != 6 {
		t.Errorf("entry 0: got (%q, %v)", cid, dur)
	}
	cid, dur = src.At(1)
	if cid != "cidB" || dur != 6 {
		t.Errorf("entry 1: got (%q, %v)", cid, dur)
	}
}
