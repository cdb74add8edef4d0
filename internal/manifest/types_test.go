package manifest

import "testing"

func segWithCID(cid string) Segment {
	return Segment{CID: cid, DurationSeconds: 6}
}

func TestBuildJingleInterleave(t *testing.T) {
	// E2: two 12s tracks (2 segments each), one 6s jingle, cycle=1.
	// Expected: T1_0, T1_1, J0_0, T2_0, T2_1.
	m := &Manifest{
		Tracks: []Track{
			{Filename: "t1.wav", Segments: []Segment{segWithCID("T1_0"), segWithCID("T1_1")}},
			{Filename: "t2.wav", Segments: []Segment{segWithCID("T2_0"), segWithCID("T2_1")}},
		},
		Jingles: []Track{
			{Filename: "j0.wav", Segments: []Segment{segWithCID("J0_0")}},
		},
		JinglesParams: JinglesParams{Enabled: true, Cycle: 1},
	}

	vp := Build(m)
	want := []string{"T1_0", "T1_1", "J0_0", "T2_0", "T2_1"}
	if len(vp.CIDs) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(vp.CIDs), len(want), vp.CIDs)
	}
	for i, w := range want {
		if vp.CIDs[i] != w {
			t.Errorf("entry %d: got %q want %q", i, vp.CIDs[i], w)
		}
	}
}

func TestBuildNoJingles(t *testing.T) {
	m := &Manifest{
		Tracks: []Track{
			{Segments: []Segment{segWithCID("A"), segWithCID("B")}},
			{Segments: []Segment{segWithCID("C")}},
		},
	}
	vp := Build(m)
	want := []string{"A", "B", "C"}
	for i, w := range want {
		if vp.CIDs[i] != w {
			t.Errorf("entry %d: got %q want %q", i, vp.CIDs[i], w)
		}
	}
}

func TestBuildJingleCycleTwo(t *testing.T) {
	// Three tracks, cycle=2: jingle inserted before the 3rd track (index 2,
	// since 2 mod 2 == 0 and index > 0).
	m := &Manifest{
		Tracks: []Track{
			{Segments: []Segment{segWithCID("A")}},
			{Segments: []Segment{segWithCID("B")}},
			{Segments: []Segment{segWithCID("C")}},
		},
		Jingles: []Track{
			{Segments: []Segment{segWithCID("J0")}},
			{Segments: []Segment{segWithCID("J1")}},
		},
		JinglesParams: JinglesParams{Enabled: true, Cycle: 2},
	}
	vp := Build(m)
	want := []string{"A", "B", "J0", "C"}
	if len(vp.CIDs) != len(want) {
		t.Fatalf("got %v, want %v", vp.CIDs, want)
	}
	for i, w := range want {
		if vp.CIDs[i] != w {
			t.Errorf("entry %d: got %q want %q", i, vp.CIDs[i], w)
		}
	}
}
