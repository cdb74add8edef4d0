// Command streamer runs the Sliding-Window Streamer: it loads the manifest-
// derived virtual playlist, maintains the monotonic sequence counter, and
// republishes the HLS window under the node's mutable name every tick.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/config"
	"github.com/meshcast/meshcast/internal/logging"
	"github.com/meshcast/meshcast/internal/playlistsrc"
	"github.com/meshcast/meshcast/internal/streamer"
)

func main() {
	log := logging.New("streamer")
	node := config.LoadNode()

	streamingCfgPath := getenv("STREAMING_CONFIG", "./config/streaming.config.json")
	streamingCfg, err := config.LoadStreaming(streamingCfgPath)
	if err != nil {
		log.Error("ConfigLoadFailure: streaming config", "path", streamingCfgPath, "error", err)
		os.Exit(1)
	}

	mode := getenv("STREAM_MODE", "manifest")
	source, stopCapture, err := loadSource(mode, node, log)
	if err != nil {
		log.Error("cannot load virtual playlist", "mode", mode, "error", err)
		os.Exit(1)
	}
	if stopCapture != nil {
		defer stopCapture()
	}

	cas := casclient.New(node.IPFSAPI, log)

	s := streamer.New(cas, source, log, streamer.Config{
		WindowSize:     orDefault(streamingCfg.Streaming.WindowSize, 4),
		UpdateInterval: time.Duration(orDefault(streamingCfg.Streaming.UpdateInterval, 2)) * time.Second,
		AdvanceEvery:   orDefault(streamingCfg.Streaming.AdvanceEvery, 2),
		IPNSLifetime:   orDefaultStr(streamingCfg.IPNS.Lifetime, node.IPNSLifetime),
		IPNSTTL:        orDefaultStr(streamingCfg.IPNS.TTL, node.IPNSTTL),
		AllowOffline:   streamingCfg.IPNS.AllowOffline,
	}, streamer.Paths{
		SequenceStatePath: filepath.Join(node.StateDir, "sequence_state.json"),
		KeyStatePath:      filepath.Join(node.StateDir, "ipns_keys.json"),
		StreamInfoPath:    filepath.Join(node.StateDir, "stream_info.json"),
	}, node.NodeID, node.IPFSGateway)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := s.Init(ctx); err != nil {
		log.Error("ERROR_NO_KEY: streamer cannot start", "error", err)
		os.Exit(1)
	}

	if err := s.Run(ctx); err != nil {
		log.Error("streamer exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("streamer shut down cleanly")
}

// loadSource builds the streamer's playlistsrc.Source per §9's mode switch.
// "manifest" (the default) reads the setup processor's own playlist.m3u.
// "capture" is the live-capture alternative: segments are produced by an
// external HLS encoder in real time and announced via a conformant media
// playlist, ingested here with github.com/mogiioin/hls-m3u8. The returned
// stop func, if non-nil, must be deferred by the caller to drain the
// capture source's write-behind flush loop.
func loadSource(mode string, node config.Node, log *slog.Logger) (playlistsrc.Source, func(), error) {
	switch mode {
	case "capture":
		statePath := filepath.Join(node.StateDir, "segment_state.json")
		quality := getenv("CAPTURE_QUALITY", "default")
		externalPlaylist := getenv("EXTERNAL_PLAYLIST_PATH", filepath.Join(node.HLSDir, "external.m3u8"))

		source, err := playlistsrc.NewCaptureSource(statePath, quality, node.MaxSegments)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open capture state: %w", err)
		}
		seen, err := playlistsrc.IngestExternalPlaylist(externalPlaylist, quality, source)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot ingest external playlist: %w", err)
		}
		log.Info("capture mode: ingested external playlist", "path", externalPlaylist, "quality", quality, "segments", seen)

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := source.FlushIfDirty(); err != nil {
						log.Warn("capture state flush failed", "error", err)
					}
				}
			}
		}()
		stop := func() {
			close(done)
			if err := source.FlushIfDirty(); err != nil {
				log.Warn("final capture state flush failed", "error", err)
			}
		}
		return source, stop, nil
	default:
		source, err := playlistsrc.LoadManifestSource(filepath.Join(node.HLSDir, "playlist.m3u"))
		if err != nil {
			return nil, nil, err
		}
		return source, nil, nil
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func orDefaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
