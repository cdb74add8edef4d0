package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/dhowden/tag"
)

// FileMetadata is best-effort descriptive metadata read from a source audio
// file's embedded tags. It is not part of the wire contract; the setup
// processor copies it into the manifest's Track records, same role it plays
// in the teacher's track scanner.
type FileMetadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata opens path and extracts embedded tag metadata, if any. A file
// with no readable tags is not an error: every field is simply left blank.
func ReadMetadata(path string) (FileMetadata, error) {
	var md FileMetadata
	f, err := os.Open(path)
	if err != nil {
		return md, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// No embedded tags is routine for raw WAV/FLAC source files.
		return md, nil
	}
	if t := m.Title(); t != "" {
		md.Title = t
	}
	if a := m.Artist(); a != "" {
		md.Artist = a
	}
	if al := m.Album(); al != "" {
		md.Album = al
	}
	return md, nil
}

// Checksum returns the hex SHA-256 of a file's contents, recorded by the
// setup processor as Track.Checksum.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
