package setupproc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/meshcast/meshcast/internal/config"
)

// ConfigHash computes SHA-256(canonical-JSON({setup, playlist})). Marshaling
// a map[string]any yields its top-level keys sorted alphabetically by
// encoding/json; the nested Setup and Playlist structs are encoded in their
// field declaration order, so the hash is stable for a given set of struct
// definitions.
func ConfigHash(setup config.Setup, playlist config.Playlist) (string, error) {
	combined := map[string]any{
		"setup":    setup,
		"playlist": playlist,
	}
	data, err := json.Marshal(combined)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
