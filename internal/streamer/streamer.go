// Package streamer implements the Sliding-Window Streamer (component D):
// a live-stream illusion engine that walks a playlistsrc.Source in a window
// of W consecutive entries, regenerates an HLS media playlist every tick,
// pins it, and republishes it under the node's mutable name with strict
// monotonic MEDIA-SEQUENCE semantics across restarts.
//
// The tick loop's shape — an initial check, then select{ctx.Done / ticker.C}
// — follows the teacher's playlist scheduler.
package streamer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/diskstate"
	"github.com/meshcast/meshcast/internal/playlistsrc"
)

// epoch anchors PROGRAM-DATE-TIME to a segment's logical position
// (epoch + sequence*duration) instead of wall-clock "now" at publish time.
var epoch = time.Unix(0, 0).UTC()

// Publisher is the subset of the CAS client the streamer depends on.
type Publisher interface {
	Add(ctx context.Context, data []byte, filename string, pin bool) (string, error)
	NamePublish(ctx context.Context, key, cidStr, lifetime, ttl string, allowOffline bool) (string, error)
	KeyList(ctx context.Context) ([]casclient.KeyInfo, error)
	KeyGen(ctx context.Context, name, keyType string) (string, error)
}

// SequenceState is the persistent monotonic counter S (sequence_state.json).
// It is never truncated modulo L in storage; the modulus is taken only at
// read time when computing the window.
type SequenceState struct {
	Sequence uint64 `json:"sequence"`
}

// KeyState is the persistent MN-key map (ipns_keys.json).
type KeyState struct {
	Name  string `json:"name"`
	KeyID string `json:"key_id"`
}

// StreamInfo is written for external observers on every successful tick.
type StreamInfo struct {
	MN               string    `json:"mn"`
	GatewayURL       string    `json:"gateway_url"`
	Sequence         uint64    `json:"sequence"`
	PlaylistPosition int       `json:"playlist_position"`
	UpdatedAt        time.Time `json:"updated_at"`
	NodeID           string    `json:"node_id"`
}

// Config holds the streamer's tuning parameters (streaming.config.json's
// `streaming` section) plus the IPNS publish options.
type Config struct {
	WindowSize     int
	UpdateInterval time.Duration
	AdvanceEvery   int
	IPNSLifetime   string
	IPNSTTL        string
	AllowOffline   bool
}

// Paths names the on-disk documents the streamer reads and writes.
type Paths struct {
	SequenceStatePath string
	KeyStatePath      string
	StreamInfoPath    string
}

// MNKeyProvisionFailure is fatal: the streamer cannot boot without a stream
// key.
type MNKeyProvisionFailure struct {
	Err error
}

func (e *MNKeyProvisionFailure) Error() string {
	return fmt.Sprintf("streamer: cannot provision MN key: %v", e.Err)
}
func (e *MNKeyProvisionFailure) Unwrap() error { return e.Err }

// Streamer runs the sliding-window tick loop.
type Streamer struct {
	cas        Publisher
	source     playlistsrc.Source
	log        *slog.Logger
	cfg        Config
	paths      Paths
	nodeID     string
	gatewayURL string

	keyName string
	keyID   string

	sequence uint64
	update   int
}

// New constructs a Streamer. It does not provision the key or load state;
// call Init for that.
func New(cas Publisher, source playlistsrc.Source, log *slog.Logger, cfg Config, paths Paths, nodeID, gatewayURL string) *Streamer {
	return &Streamer{
		cas: cas, source: source, log: log, cfg: cfg, paths: paths,
		nodeID: nodeID, gatewayURL: gatewayURL,
		keyName: nodeID + "-stream",
	}
}

// Init ensures the stream MN key exists and loads the persisted sequence
// counter, defaulting to 0.
func (s *Streamer) Init(ctx context.Context) error {
	keys, err := s.cas.KeyList(ctx)
	if err != nil {
		return &MNKeyProvisionFailure{Err: err}
	}
	found := false
	for _, k := range keys {
		if k.Name == s.keyName {
			s.keyID = k.ID
			found = true
			break
		}
	}
	if !found {
		id, err := s.cas.KeyGen(ctx, s.keyName, "ed25519")
		if err != nil {
			return &MNKeyProvisionFailure{Err: err}
		}
		s.keyID = id
	}
	if err := diskstate.WriteJSON(s.paths.KeyStatePath, &KeyState{Name: s.keyName, KeyID: s.keyID}); err != nil {
		s.log.Warn("failed to persist key state", "error", err)
	}

	var seq SequenceState
	if err := diskstate.ReadJSON(s.paths.SequenceStatePath, &seq); err == nil {
		s.sequence = seq.Sequence
	}
	return nil
}

// Run drives the tick loop until ctx is cancelled, matching the teacher
// scheduler's initial-check-then-ticker-select shape.
func (s *Streamer) Run(ctx context.Context) error {
	s.tick(ctx)
	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one publish attempt. Transient failures abort the tick
// without advancing the sequence, preserving monotonicity across restarts.
func (s *Streamer) tick(ctx context.Context) {
	l := s.source.Len()
	if l == 0 {
		s.log.Warn("tick skipped: empty playlist source")
		return
	}
	w := s.cfg.WindowSize
	if w > l {
		w = l
	}

	entries := make([]windowEntry, 0, w)
	for i := 0; i < w; i++ {
		idx := int((s.sequence + uint64(i)) % uint64(l))
		cid, dur := s.source.At(idx)
		entries = append(entries, windowEntry{CID: cid, Duration: dur})
	}

	firstPDT := epoch
	if len(entries) > 0 {
		firstPDT = epoch.Add(secondsToDuration(float64(s.sequence) * entries[0].Duration))
	}

	text := BuildPlaylist(s.sequence, entries, firstPDT)

	playlistCID, err := s.cas.Add(ctx, []byte(text), "playlist.m3u8", true)
	if err != nil {
		s.log.Warn("tick aborted: upload failed", "error", err)
		return
	}

	mn, err := s.cas.NamePublish(ctx, s.keyName, playlistCID, s.cfg.IPNSLifetime, s.cfg.IPNSTTL, s.cfg.AllowOffline)
	if err != nil {
		s.log.Warn("tick aborted: publish failed", "error", err)
		return
	}

	info := StreamInfo{
		MN:               mn,
		GatewayURL:       s.gatewayURL,
		Sequence:         s.sequence,
		PlaylistPosition: int(s.sequence % uint64(l)),
		UpdatedAt:        time.Now().UTC(),
		NodeID:           s.nodeID,
	}
	if err := diskstate.WriteJSON(s.paths.StreamInfoPath, &info); err != nil {
		s.log.Warn("failed to write stream info", "error", err)
	}

	s.advance()
}

// advance decouples republishing frequency (every tick) from content-advance
// frequency (every AdvanceEvery ticks). The counter is persisted only when
// it changes; a failed persist means the tick does not advance, per
// SequencePersistFailure's policy.
func (s *Streamer) advance() {
	s.update++
	if s.update < s.cfg.AdvanceEvery {
		return
	}
	next := s.sequence + 1
	if err := diskstate.WriteJSON(s.paths.SequenceStatePath, &SequenceState{Sequence: next}); err != nil {
		s.log.Warn("SequencePersistFailure: not advancing this tick", "error", err)
		return
	}
	s.sequence = next
	s.update = 0
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Sequence reports the current in-memory sequence counter, for tests.
func (s *Streamer) Sequence() uint64 { return s.sequence }
