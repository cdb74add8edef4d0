package playlistsrc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ManifestSource is the static-mode Source: the flattened CID list produced
// once by the setup processor and read back from playlist.m3u. The file is
// the processor's minimal internal format (#EXTINF + URI pairs, no
// #EXTM3U/VERSION header), so it is scanned directly rather than through a
// general HLS parser.
type ManifestSource struct {
	cids      []string
	durations []float64
}

// LoadManifestSource reads path and builds a ManifestSource from its
// #EXTINF/URI pairs.
func LoadManifestSource(path string) (*ManifestSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ms := &ManifestSource{}
	scanner := bufio.NewScanner(f)
	var pendingDuration float64
	havePending := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#EXTINF:"):
			rest := strings.TrimPrefix(line, "#EXTINF:")
			rest = strings.TrimSuffix(rest, ",")
			d, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return nil, fmt.Errorf("playlistsrc: malformed EXTINF %q: %w", line, err)
			}
			pendingDuration = d
			havePending = true
		case strings.HasPrefix(line, "/ipfs/"):
			if !havePending {
				return nil, fmt.Errorf("playlistsrc: URI without preceding EXTINF: %q", line)
			}
			ms.cids = append(ms.cids, strings.TrimPrefix(line, "/ipfs/"))
			ms.durations = append(ms.durations, pendingDuration)
			havePending = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ms, nil
}

// Len implements Source.
func (ms *ManifestSource) Len() int { return len(ms.cids) }

// At implements Source.
func (ms *ManifestSource) At(i int) (string, float64) {
	return ms.cids[i], ms.durations[i]
}
