// Package setupproc implements the Setup Processor (component C):
// config-hash cache gate, track/jingle enumeration, chunking via component
// B, upload via component A, and manifest plus virtual-playlist emission.
// Grounded on the teacher's music scanner for enumeration style and on
// original_source/src/setup/setup_processor.py for the cache-gate and
// interleave semantics.
package setupproc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/meshcast/meshcast/internal/audiochunk"
	"github.com/meshcast/meshcast/internal/config"
	"github.com/meshcast/meshcast/internal/diskstate"
	"github.com/meshcast/meshcast/internal/manifest"
)

// Uploader is the subset of the CAS client the setup processor depends on.
type Uploader interface {
	Add(ctx context.Context, data []byte, filename string, pin bool) (string, error)
}

// Paths names the on-disk locations the processor reads and writes.
type Paths struct {
	ManifestPath string // manifest.json
	PlaylistPath string // playlist.m3u
	ProcessedDir string // scratch dir for chunker output
}

// Processor runs one setup invocation.
type Processor struct {
	cas   Uploader
	log   *slog.Logger
	paths Paths
	nodeID string
}

// New constructs a Processor.
func New(cas Uploader, log *slog.Logger, paths Paths, nodeID string) *Processor {
	return &Processor{cas: cas, log: log, paths: paths, nodeID: nodeID}
}

// Run executes the cache-gate-then-build contract described in §4.C. It is
// idempotent with respect to configuration.
func (p *Processor) Run(ctx context.Context, setupCfg config.Setup, playlistCfg config.Playlist) error {
	hash, err := ConfigHash(setupCfg, playlistCfg)
	if err != nil {
		return fmt.Errorf("setupproc: compute config hash: %w", err)
	}

	var existing manifest.Manifest
	if err := diskstate.ReadJSON(p.paths.ManifestPath, &existing); err == nil {
		if existing.ConfigHash == hash && !setupCfg.Processing.ForceRebuild {
			p.log.Info("cache hit: config unchanged, rebuilding playlist only", "config_hash", hash)
			vp := manifest.Build(&existing)
			return p.writePlaylist(&vp, setupCfg.Audio.SegmentDuration)
		}
	}

	p.log.Info("cache miss: full rebuild", "config_hash", hash)
	return p.rebuild(ctx, setupCfg, playlistCfg, hash)
}

func (p *Processor) rebuild(ctx context.Context, setupCfg config.Setup, playlistCfg config.Playlist, hash string) error {
	trackFiles, missing, err := p.enumerateTracks(playlistCfg)
	if err != nil {
		return fmt.Errorf("setupproc: enumerate tracks: %w", err)
	}
	for _, m := range missing {
		p.log.Warn(m.Error())
	}

	tracks := make([]manifest.Track, 0, len(trackFiles))
	for _, f := range trackFiles {
		t, err := p.processFile(ctx, f, manifest.KindTrack, setupCfg.Audio)
		if err != nil {
			return fmt.Errorf("setupproc: process track %s: %w", f, err)
		}
		tracks = append(tracks, t)
	}

	var jingles []manifest.Track
	if setupCfg.Jingles.Enabled {
		jingleFiles, err := ScanJingles(setupCfg.Jingles.Source)
		if err != nil {
			p.log.Warn("cannot enumerate jingles", "error", err)
		}
		for _, f := range jingleFiles {
			t, err := p.processFile(ctx, f, manifest.KindJingle, setupCfg.Audio)
			if err != nil {
				p.log.Warn("skipping jingle due to processing failure", "file", f, "error", err)
				continue
			}
			jingles = append(jingles, t)
		}
	}

	m := manifest.Manifest{
		ConfigHash: hash,
		CreatedAt:  time.Now().UTC(),
		Tracks:     tracks,
		Jingles:    jingles,
		AudioParams: manifest.AudioParams{
			SegmentDuration: setupCfg.Audio.SegmentDuration,
			Bitrate:         setupCfg.Audio.Bitrate,
			Codec:           setupCfg.Audio.Codec,
		},
		JinglesParams: manifest.JinglesParams{
			Enabled: setupCfg.Jingles.Enabled,
			Source:  setupCfg.Jingles.Source,
			Cycle:   setupCfg.Jingles.Cycle,
		},
	}

	if err := diskstate.WriteJSON(p.paths.ManifestPath, &m); err != nil {
		return fmt.Errorf("setupproc: write manifest: %w", err)
	}

	vp := manifest.Build(&m)
	return p.writePlaylist(&vp, setupCfg.Audio.SegmentDuration)
}

func (p *Processor) enumerateTracks(playlistCfg config.Playlist) ([]string, []*MissingTrack, error) {
	if len(playlistCfg.Tracks) > 0 {
		found, missing := ResolveTrackList(playlistCfg.Source, playlistCfg.Tracks, playlistCfg.Options.ScanSubdirectories)
		return found, missing, nil
	}
	found, err := ScanAll(playlistCfg.Source, playlistCfg.Options.ScanSubdirectories)
	return found, nil, err
}

// processFile chunks one source file and uploads each segment, returning
// the resulting Track. Upload failure is fatal per §4.C's failure
// semantics; partial manifests are never written by the caller.
func (p *Processor) processFile(ctx context.Context, file string, kind manifest.Kind, audio config.Audio) (manifest.Track, error) {
	base := filepath.Base(file)
	outDir := filepath.Join(p.paths.ProcessedDir, base)

	result, err := audiochunk.Chunk(ctx, p.log, file, outDir, audiochunk.Options{
		SegmentDuration: audio.SegmentDuration,
		Bitrate:         audio.Bitrate,
		Codec:           audio.Codec,
	})
	if err != nil {
		return manifest.Track{}, err
	}
	if result.Warning != "" {
		p.log.Warn(result.Warning, "file", file)
	}

	md, err := manifest.ReadMetadata(file)
	if err != nil {
		p.log.Warn("cannot read embedded tags", "file", file, "error", err)
	}
	checksum, err := manifest.Checksum(file)
	if err != nil {
		p.log.Warn("cannot checksum source file", "file", file, "error", err)
	}

	segments := make([]manifest.Segment, 0, len(result.SegmentPaths))
	for _, segPath := range result.SegmentPaths {
		data, err := os.ReadFile(segPath)
		if err != nil {
			return manifest.Track{}, fmt.Errorf("read segment %s: %w", segPath, err)
		}
		segCID, err := p.cas.Add(ctx, data, filepath.Base(segPath), true)
		if err != nil {
			return manifest.Track{}, fmt.Errorf("upload segment %s: %w", segPath, err)
		}
		segments = append(segments, manifest.Segment{
			Filename:        filepath.Base(segPath),
			CID:             segCID,
			ByteSize:        int64(len(data)),
			DurationSeconds: audio.SegmentDuration,
			NodeID:          p.nodeID,
			CreatedAt:       time.Now().UTC(),
		})
	}

	return manifest.Track{
		Filename: base,
		Kind:     kind,
		BaseName: base,
		Title:    md.Title,
		Artist:   md.Artist,
		Album:    md.Album,
		Checksum: checksum,
		Segments: segments,
	}, nil
}

// writePlaylist emits the minimal HLS-like virtual playlist file: one
// #EXTINF line followed by a /ipfs/<CID> URI per entry.
func (p *Processor) writePlaylist(vp *manifest.VirtualPlaylist, segmentDuration float64) error {
	var buf []byte
	for _, cidStr := range vp.CIDs {
		line := fmt.Sprintf("#EXTINF:%s,\n/ipfs/%s\n", formatDuration(segmentDuration), cidStr)
		buf = append(buf, line...)
	}
	return diskstate.WriteText(p.paths.PlaylistPath, buf)
}

func formatDuration(d float64) string {
	if d == float64(int64(d)) {
		return fmt.Sprintf("%d", int64(d))
	}
	return fmt.Sprintf("%g", d)
}
