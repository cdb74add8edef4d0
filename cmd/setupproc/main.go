// Command setupproc runs the Setup Processor once: it transcodes the
// configured track set into HLS segments (unless the config hash is
// unchanged), uploads them to the CAS, and writes the manifest and virtual
// playlist.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/config"
	"github.com/meshcast/meshcast/internal/logging"
	"github.com/meshcast/meshcast/internal/setupproc"
)

func main() {
	log := logging.New("setupproc")
	node := config.LoadNode()

	setupCfgPath := getenv("SETUP_CONFIG", "./config/setup.config.json")
	playlistCfgPath := getenv("PLAYLIST_CONFIG", "./config/playlist.config.json")

	setupCfg, err := config.LoadSetup(setupCfgPath)
	if err != nil {
		log.Error("ConfigLoadFailure: setup config", "path", setupCfgPath, "error", err)
		os.Exit(1)
	}
	playlistCfg, err := config.LoadPlaylist(playlistCfgPath)
	if err != nil {
		log.Error("ConfigLoadFailure: playlist config", "path", playlistCfgPath, "error", err)
		os.Exit(1)
	}

	cas := casclient.New(node.IPFSAPI, log)

	proc := setupproc.New(cas, log, setupproc.Paths{
		ManifestPath: filepath.Join(node.StateDir, "manifest.json"),
		PlaylistPath: filepath.Join(node.HLSDir, "playlist.m3u"),
		ProcessedDir: node.ProcessedDir,
	}, node.NodeID)

	ctx := context.Background()
	if err := proc.Run(ctx, setupCfg, playlistCfg); err != nil {
		log.Error("setup processor failed", "error", err)
		os.Exit(1)
	}
	log.Info("setup processor completed")
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
