package streamer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/meshcast/meshcast/internal/casclient"
)

type fakeSource struct {
	cids      []string
	durations []float64
}

func (f *fakeSource) Len() int { return len(f.cids) }
func (f *fakeSource) At(i int) (string, float64) { return f.cids[i], f.durations[i] }

type fakePublisher struct {
	addCount int
	publishedSeqs []uint64
}

func (f *fakePublisher) Add(ctx context.Context, data []byte, filename string, pin bool) (string, error) {
	f.addCount++
	return "playlistCID", nil
}

func (f *fakePublisher) NamePublish(ctx context.Context, key, cidStr, lifetime, ttl string, allowOffline bool) (string, error) {
	return "mn-" + key, nil
}

func (f *fakePublisher) KeyList(ctx context.Context) ([]casclient.KeyInfo, error) {
	return []casclient.KeyInfo{{Name: "node1-stream", ID: "key1"}}, nil
}

func (f *fakePublisher) KeyGen(ctx context.Context, name, keyType string) (string, error) {
	return "key1", nil
}

func newTestStreamer(t *testing.T, l int) (*Streamer, *fakePublisher) {
	t.Helper()
	dir := t.TempDir()
	cids := make([]string, l)
	durations := make([]float64, l)
	for i := range cids {
		cids[i] = string(rune('A' + i))
		durations[i] = 6
	}
	src := &fakeSource{cids: cids, durations: durations}
	pub := &fakePublisher{}
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	s := New(pub, src, log, Config{
		WindowSize:     4,
		AdvanceEvery:   2,
		IPNSLifetime:   "24h",
		IPNSTTL:        "60s",
	}, Paths{
		SequenceStatePath: filepath.Join(dir, "sequence_state.json"),
		KeyStatePath:      filepath.Join(dir, "ipns_keys.json"),
		StreamInfoPath:    filepath.Join(dir, "stream_info.json"),
	}, "node1", "http://gw")

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, pub
}

// TestTickAdvanceSchedule mirrors E3: W=4, A=2, T=2, L=10, starting S=0.
// After ticks at t=0,2,4,6: sequences observed before each tick are 0,0,1,1.
func TestTickAdvanceSchedule(t *testing.T) {
	s, _ := newTestStreamer(t, 10)
	ctx := context.Background()

	var seqBeforeEachTick []uint64
	for i := 0; i < 4; i++ {
		seqBeforeEachTick = append(seqBeforeEachTick, s.Sequence())
		s.tick(ctx)
	}

	want := []uint64{0, 0, 1, 1}
	for i, w := range want {
		if seqBeforeEachTick[i] != w {
			t.Errorf("tick %d: sequence before tick = %d, want %d", i, seqBeforeEachTick[i], w)
		}
	}
}

func TestMonotonicSequenceAcrossRestart(t *testing.T) {
	s, _ := newTestStreamer(t, 10)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		s.tick(ctx)
	}
	seqBefore := s.Sequence()

	// Simulate restart: reload from the persisted sequence_state.json.
	s2, _ := newTestStreamer(t, 10)
	s2.paths.SequenceStatePath = s.paths.SequenceStatePath
	if err := s2.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s2.Sequence() < seqBefore {
		t.Fatalf("sequence decreased across restart: had %d, now %d", seqBefore, s2.Sequence())
	}
}

func TestBuildPlaylistHeaderOrder(t *testing.T) {
	entries := []windowEntry{{CID: "X", Duration: 6}}
	text := BuildPlaylist(3, entries, epoch)
	want := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:7\n#EXT-X-MEDIA-SEQUENCE:3\n"
	if len(text) < len(want) || text[:len(want)] != want {
		t.Fatalf("header mismatch:\ngot:  %q\nwant prefix: %q", text, want)
	}
}
