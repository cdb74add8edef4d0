package segcleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/diskstate"
	"github.com/meshcast/meshcast/internal/playlistsrc"
)

type fakeCAS struct {
	unpinned []string
	unpinErr map[string]error
}

func (f *fakeCAS) Unpin(ctx context.Context, cid string) error {
	f.unpinned = append(f.unpinned, cid)
	if f.unpinErr != nil {
		return f.unpinErr[cid]
	}
	return nil
}

func (f *fakeCAS) RepoGC(ctx context.Context) ([]casclient.GCEvent, error) { return nil, nil }
func (f *fakeCAS) RepoStat(ctx context.Context) (casclient.RepoStat, error) {
	return casclient.RepoStat{}, nil
}

// TestCleanupEnforcesMaxSegments mirrors E6: 60 segments, MAX=50, all within
// retention. The 10 oldest are unpinned and deleted; 50 remain.
func TestCleanupEnforcesMaxSegments(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "segment_state.json")

	now := time.Now().UTC()
	bucket := make(map[string]playlistsrc.CapturedSegment, 60)
	for i := 0; i < 60; i++ {
		name := filmName(i)
		bucket[name] = playlistsrc.CapturedSegment{
			Filename:  name,
			CID:       "cid-" + name,
			Duration:  6,
			Timestamp: now.Add(time.Duration(-(60 - i)) * time.Second), // oldest first
		}
	}
	state := playlistsrc.SegmentState{Qualities: map[string]map[string]playlistsrc.CapturedSegment{"default": bucket}}
	if err := diskstate.WriteJSON(statePath, &state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	cas := &fakeCAS{}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	c := New(cas, Config{RetentionTime: time.Hour, MaxSegments: 50, CleanupInterval: time.Second}, Paths{
		StatePath: statePath,
		LocalDir:  dir,
	}, log)

	if err := c.cleanupOnce(context.Background()); err != nil {
		t.Fatalf("cleanupOnce: %v", err)
	}

	if len(cas.unpinned) != 10 {
		t.Fatalf("expected 10 unpins, got %d", len(cas.unpinned))
	}

	var after playlistsrc.SegmentState
	if err := diskstate.ReadJSON(statePath, &after); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if got := len(after.Qualities["default"]); got != 50 {
		t.Fatalf("expected 50 remaining entries, got %d", got)
	}
}

func TestCleanupKeepsEntryWhenUnpinFails(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "segment_state.json")
	now := time.Now().UTC()

	bucket := map[string]playlistsrc.CapturedSegment{
		"seg.ts": {Filename: "seg.ts", CID: "cid-seg", Timestamp: now.Add(-2 * time.Hour)},
	}
	state := playlistsrc.SegmentState{Qualities: map[string]map[string]playlistsrc.CapturedSegment{"default": bucket}}
	if err := diskstate.WriteJSON(statePath, &state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	cas := &fakeCAS{unpinErr: map[string]error{"cid-seg": errUnpinFailed}}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	c := New(cas, Config{RetentionTime: time.Hour, CleanupInterval: time.Second}, Paths{StatePath: statePath, LocalDir: dir}, log)

	if err := c.cleanupOnce(context.Background()); err != nil {
		t.Fatalf("cleanupOnce: %v", err)
	}

	var after playlistsrc.SegmentState
	if err := diskstate.ReadJSON(statePath, &after); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if _, ok := after.Qualities["default"]["seg.ts"]; !ok {
		t.Fatal("state entry should survive a failed unpin, per CleanupDeleteFailure policy")
	}
}

var errUnpinFailed = fmt.Errorf("unpin failed")

func filmName(i int) string {
	return fmt.Sprintf("seg_%03d.ts", i)
}
