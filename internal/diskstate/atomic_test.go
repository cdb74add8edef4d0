package diskstate

import (
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Value int `json:"value"`
}

func TestWriteReadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")

	if err := WriteJSON(path, &doc{Value: 42}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got doc
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Value != 42 {
		t.Fatalf("got %d, want 42", got.Value)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "doc.json" {
			t.Errorf("leftover temp file not cleaned up: %s", e.Name())
		}
	}
}

func TestWriteJSONOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	if err := WriteJSON(path, &doc{Value: 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := WriteJSON(path, &doc{Value: 2}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got doc
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Value != 2 {
		t.Fatalf("got %d, want 2", got.Value)
	}
}
