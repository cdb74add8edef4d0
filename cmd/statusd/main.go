// Command statusd serves the ambient, read-only status API: health,
// current stream info, converged position, and manifest summary.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/config"
	"github.com/meshcast/meshcast/internal/logging"
	"github.com/meshcast/meshcast/internal/statusapi"
)

func main() {
	log := logging.New("statusd")
	node := config.LoadNode()

	cas := casclient.New(node.IPFSAPI, log)

	addr := getenv("STATUS_ADDR", ":8090")
	srv := statusapi.New(addr, statusapi.Paths{
		ManifestPath:        filepath.Join(node.StateDir, "manifest.json"),
		StreamInfoPath:      filepath.Join(node.StateDir, "stream_info.json"),
		CurrentPositionPath: filepath.Join(node.StateDir, "current_position.json"),
		SequenceStatePath:   filepath.Join(node.StateDir, "sequence_state.json"),
	}, node.NodeID, cas, log)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	log.Info("status API listening", "addr", addr)
	if err := srv.Run(ctx); err != nil {
		log.Error("status API exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("status API shut down cleanly")
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
