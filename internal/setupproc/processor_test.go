package setupproc

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meshcast/meshcast/internal/config"
	"github.com/meshcast/meshcast/internal/diskstate"
	"github.com/meshcast/meshcast/internal/manifest"
)

type fakeUploader struct {
	calls int
}

func (f *fakeUploader) Add(ctx context.Context, data []byte, filename string, pin bool) (string, error) {
	f.calls++
	return "cid-" + filename, nil
}

func TestConfigHashDeterministic(t *testing.T) {
	setupCfg := config.Setup{Audio: config.Audio{SegmentDuration: 6, Bitrate: 128, Codec: "aac"}}
	playlistCfg := config.Playlist{Source: "/music"}

	h1, err := ConfigHash(setupCfg, playlistCfg)
	if err != nil {
		t.Fatalf("ConfigHash: %v", err)
	}
	h2, err := ConfigHash(setupCfg, playlistCfg)
	if err != nil {
		t.Fatalf("ConfigHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %q vs %q", h1, h2)
	}

	playlistCfg.Source = "/other"
	h3, err := ConfigHash(setupCfg, playlistCfg)
	if err != nil {
		t.Fatalf("ConfigHash: %v", err)
	}
	if h3 == h1 {
		t.Fatal("changing config should change the hash")
	}
}

// TestCacheHitSkipsChunkerAndUpload mirrors invariant 4 and E4: a re-run
// with unchanged config does not re-invoke the transcoder (here: does not
// call the uploader at all, since chunking only happens on cache miss) and
// rewrites playlist.m3u from the existing manifest.
func TestCacheHitSkipsChunkerAndUpload(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	playlistPath := filepath.Join(dir, "playlist.m3u")

	setupCfg := config.Setup{Audio: config.Audio{SegmentDuration: 6, Bitrate: 128, Codec: "aac"}}
	playlistCfg := config.Playlist{Source: "/music"}
	hash, err := ConfigHash(setupCfg, playlistCfg)
	if err != nil {
		t.Fatalf("ConfigHash: %v", err)
	}

	existing := manifest.Manifest{
		ConfigHash: hash,
		CreatedAt:  time.Now().UTC(),
		Tracks: []manifest.Track{
			{Filename: "a.wav", Segments: []manifest.Segment{{CID: "cidA", DurationSeconds: 6}}},
		},
	}
	if err := diskstate.WriteJSON(manifestPath, &existing); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	up := &fakeUploader{}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	proc := New(up, log, Paths{ManifestPath: manifestPath, PlaylistPath: playlistPath, ProcessedDir: dir}, "node1")

	if err := proc.Run(context.Background(), setupCfg, playlistCfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if up.calls != 0 {
		t.Fatalf("cache hit should not upload anything, got %d calls", up.calls)
	}
	data, err := os.ReadFile(playlistPath)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	want := "#EXTINF:6,\n/ipfs/cidA\n"
	if string(data) != want {
		t.Fatalf("playlist mismatch:\ngot:  %q\nwant: %q", data, want)
	}
}
