package setupproc

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".wav": true, ".ogg": true, ".m4a": true,
}

// MissingTrack is a warning-level condition: a track named in config was not
// found on disk.
type MissingTrack struct {
	Name string
}

func (e *MissingTrack) Error() string { return "setupproc: missing track: " + e.Name }

// MissingJingle mirrors MissingTrack for the jingles directory.
type MissingJingle struct {
	Name string
}

func (e *MissingJingle) Error() string { return "setupproc: missing jingle: " + e.Name }

// ResolveTrackList looks up each named entry first at root, then (if
// recursive) by recursive filename match, first match wins. Names that
// cannot be found are returned separately as MissingTrack warnings rather
// than aborting the whole scan.
func ResolveTrackList(root string, names []string, recursive bool) (found []string, missing []*MissingTrack) {
	var index map[string]string
	if recursive {
		index = buildFilenameIndex(root)
	}
	for _, name := range names {
		direct := filepath.Join(root, name)
		if _, err := os.Stat(direct); err == nil {
			found = append(found, direct)
			continue
		}
		if recursive {
			if path, ok := index[name]; ok {
				found = append(found, path)
				continue
			}
		}
		missing = append(missing, &MissingTrack{Name: name})
	}
	return found, missing
}

func buildFilenameIndex(root string) map[string]string {
	index := make(map[string]string)
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if _, ok := index[info.Name()]; !ok {
			index[info.Name()] = path
		}
		return nil
	})
	return index
}

// ScanAll enumerates every supported-extension file under root, sorted by
// path, optionally recursing into subdirectories.
func ScanAll(root string, recursive bool) ([]string, error) {
	var out []string
	walk := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if supportedExtensions[ext] {
			out = append(out, path)
		}
		return nil
	}
	if err := filepath.Walk(root, walk); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ScanJingles enumerates jingle files non-recursively, sorted by path.
func ScanJingles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if supportedExtensions[ext] {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
