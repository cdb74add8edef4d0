// Command cleanup runs Segment cleanup: it periodically unpins and deletes
// segments past retention or over the per-quality count cap, and
// occasionally triggers repo GC.
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
	"github.com/meshcast/meshcast/internal/segcleanup"
)

func main() {
	log := logging.New("cleanup")
	node := config.LoadNode()

	cas := casclient.New(node.IPFSAPI, log)
	cleaner := segcleanup.New(cas, segcleanup.Config{
		RetentionTime:   node.SegmentRetentionTime,
		MaxSegments:     node.MaxSegments,
		CleanupInterval: node.CleanupInterval,
	}, segcleanup.Paths{
		StatePath: filepath.Join(node.StateDir, "segment_state.json"),
		LocalDir:  node.ProcessedDir,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	cleaner.Run(ctx)
	log.Info("cleanup shut down cleanly")
}
