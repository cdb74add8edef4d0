// Package diskstate implements the atomic-rewrite contract shared by every
// on-disk JSON document in meshcast: manifest, virtual playlist, MN-key map,
// sequence counter, stream info, and peer position.
package diskstate

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WriteJSON marshals v as indented JSON and writes it to path by writing a
// temp file in the same directory and renaming it into place, so readers
// never observe a partially-written document.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// ReadJSON loads path into v. Callers that observe os.ErrNotExist should
// retry after a bounded delay per the shared-resources contract in §5.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteText writes raw bytes (e.g. playlist.m3u) atomically using the same
// temp-file-then-rename pattern.
func WriteText(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// AppendLine appends one JSON-line to a log file such as ipfs_hashes.log.
// Appends are not part of the atomic-rewrite contract; callers tolerate a
// torn final line on crash.
func AppendLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}
