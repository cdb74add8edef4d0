// Command statesync runs the State Synchronizer: it gossips playback
// position with peers over a shared pub/sub topic so listeners on
// different nodes converge on roughly the same point in the stream.
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
	"github.com/meshcast/meshcast/internal/statesync"
)

func main() {
	log := logging.New("statesync")
	node := config.LoadNode()

	cas := casclient.New(node.IPFSAPI, log)
	sync := statesync.New(cas, node.StreamTopic, filepath.Join(node.StateDir, "current_position.json"), log)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	sync.Run(ctx)
	log.Info("state synchronizer shut down cleanly")
}
