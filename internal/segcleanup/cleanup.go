// Package segcleanup implements Segment cleanup (component F): periodic
// unpin-and-delete of segments past retention or over a count cap, for
// deployments that capture segments live rather than replaying a static
// manifest (§9's live-capture alternative).
//
// Grounded on original_source/src/segment-cleanup/cleanup-old-segments.py,
// with one deliberate behavior change from that source: per the spec's
// error table (CleanupDeleteFailure), a segment's state entry is removed
// only if the unpin succeeded, not unconditionally — see DESIGN.md.
package segcleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/diskstate"
	"github.com/meshcast/meshcast/internal/playlistsrc"
)

// CAS is the subset of the CAS client the cleaner depends on.
type CAS interface {
	Unpin(ctx context.Context, cid string) error
	RepoGC(ctx context.Context) ([]casclient.GCEvent, error)
	RepoStat(ctx context.Context) (casclient.RepoStat, error)
}

// Config tunes the cleanup loop.
type Config struct {
	RetentionTime   time.Duration
	MaxSegments     int
	CleanupInterval time.Duration
	GCEveryNCycles  int // default 10
}

// Paths names the on-disk locations the cleaner reads and writes.
type Paths struct {
	StatePath string // segment state JSON ({quality -> {filename -> record}})
	LocalDir  string // root directory local segment files live under
}

// Cleaner runs the periodic cleanup-and-GC loop.
type Cleaner struct {
	cas   CAS
	cfg   Config
	paths Paths
	log   *slog.Logger
	cycle int
}

// New constructs a Cleaner.
func New(cas CAS, cfg Config, paths Paths, log *slog.Logger) *Cleaner {
	if cfg.GCEveryNCycles <= 0 {
		cfg.GCEveryNCycles = 10
	}
	return &Cleaner{cas: cas, cfg: cfg, paths: paths, log: log}
}

// Run loops until ctx is cancelled, invoking cleanup every CleanupInterval
// and, every GCEveryNCycles cycles, triggering repo GC and logging storage
// stats.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *Cleaner) runOnce(ctx context.Context) {
	if err := c.cleanupOnce(ctx); err != nil {
		c.log.Warn("cleanup cycle failed", "error", err)
	}
	c.cycle++
	if c.cycle >= c.cfg.GCEveryNCycles {
		c.cycle = 0
		c.gcAndReport(ctx)
	}
}

// cleanupOnce loads the segment state, computes the removal set per
// quality bucket, and attempts to unpin and delete each.
func (c *Cleaner) cleanupOnce(ctx context.Context) error {
	var state playlistsrc.SegmentState
	if err := diskstate.ReadJSON(c.paths.StatePath, &state); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if state.Qualities == nil {
		return nil
	}

	now := time.Now().UTC()
	changed := false

	for quality, bucket := range state.Qualities {
		toRemove := c.selectForRemoval(bucket, now)
		for _, filename := range toRemove {
			rec := bucket[filename]
			age := now.Sub(rec.Timestamp)

			unpinErr := c.cas.Unpin(ctx, rec.CID)
			if unpinErr != nil {
				c.log.Warn("CleanupDeleteFailure: unpin", "cid", rec.CID, "age", age, "error", unpinErr)
				continue // state entry is kept: unpin did not succeed
			}

			if delErr := os.Remove(filepath.Join(c.paths.LocalDir, quality, filename)); delErr != nil && !os.IsNotExist(delErr) {
				c.log.Warn("CleanupDeleteFailure: local delete", "filename", filename, "age", age, "error", delErr)
			}

			c.log.Info("segment removed", "filename", filename, "quality", quality, "age", age)
			delete(bucket, filename)
			changed = true
		}
		state.Qualities[quality] = bucket
	}

	if changed {
		return diskstate.WriteJSON(c.paths.StatePath, &state)
	}
	return nil
}

// selectForRemoval computes the union of age-expired and excess-count
// (oldest first) segments in one quality bucket, deduplicated.
func (c *Cleaner) selectForRemoval(bucket map[string]playlistsrc.CapturedSegment, now time.Time) []string {
	type named struct {
		filename string
		rec      playlistsrc.CapturedSegment
	}
	all := make([]named, 0, len(bucket))
	for fn, rec := range bucket {
		all = append(all, named{fn, rec})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].rec.Timestamp.Before(all[j].rec.Timestamp) })

	remove := make(map[string]struct{})
	for _, n := range all {
		if now.Sub(n.rec.Timestamp) > c.cfg.RetentionTime {
			remove[n.filename] = struct{}{}
		}
	}
	if c.cfg.MaxSegments > 0 && len(all) > c.cfg.MaxSegments {
		excess := len(all) - c.cfg.MaxSegments
		for i := 0; i < excess; i++ {
			remove[all[i].filename] = struct{}{}
		}
	}

	out := make([]string, 0, len(remove))
	for fn := range remove {
		out = append(out, fn)
	}
	sort.Strings(out)
	return out
}

func (c *Cleaner) gcAndReport(ctx context.Context) {
	if _, err := c.cas.RepoGC(ctx); err != nil {
		c.log.Warn("repo gc failed", "error", err)
	}
	stat, err := c.cas.RepoStat(ctx)
	if err != nil {
		c.log.Warn("repo stat failed", "error", err)
		return
	}
	c.log.Info("storage stats", "repo_size", stat.RepoSize, "storage_max", stat.StorageMax, "num_objects", stat.NumObjects)
}
