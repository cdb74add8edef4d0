// Package statusapi is the ambient, read-only observability surface that
// every meshcast node exposes: health, current stream info, current
// converged position, and manifest summary. It is not part of the core
// spec's three subsystems — it exists purely so operators and dashboards
// have something to poll — grounded on the teacher's gin-based radio
// handlers and its net/http server lifecycle (graceful shutdown on ctx
// cancellation with a bounded Shutdown timeout).
package statusapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/diskstate"
)

// Paths names the on-disk documents the status API reads.
type Paths struct {
	ManifestPath       string
	StreamInfoPath     string
	CurrentPositionPath string
	SequenceStatePath  string
}

// Prober is the subset of the CAS client the status API depends on: a
// liveness probe for /healthz, grounded on casclient.Client.Identity's use
// of the `id` action as a readiness check.
type Prober interface {
	Identity(ctx context.Context) (casclient.Identity, error)
}

// Server serves the read-only status API.
type Server struct {
	paths  Paths
	log    *slog.Logger
	http   *http.Server
	nodeID string
	cas    Prober
}

// New constructs a Server bound to addr (":8090" style).
func New(addr string, paths Paths, nodeID string, cas Prober, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(securityHeaders())

	s := &Server{paths: paths, log: log, nodeID: nodeID, cas: cas}

	r.GET("/healthz", s.health)
	r.GET("/api/v1/stream", s.streamInfo)
	r.GET("/api/v1/position", s.currentPosition)
	r.GET("/api/v1/manifest", s.manifestSummary)

	s.http = &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down with a bounded
// timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// health round-trips casclient.Identity as a liveness probe per §2.1: the
// status API is only "ok" if the local CAS node actually answers.
func (s *Server) health(c *gin.Context) {
	id, err := s.cas.Identity(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "node_id": s.nodeID, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "node_id": s.nodeID, "cas_id": id.ID})
}

func (s *Server) streamInfo(c *gin.Context) {
	var info map[string]any
	if err := diskstate.ReadJSON(s.paths.StreamInfoPath, &info); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream info unavailable"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) currentPosition(c *gin.Context) {
	var pos map[string]any
	if err := diskstate.ReadJSON(s.paths.CurrentPositionPath, &pos); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no converged position yet"})
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) manifestSummary(c *gin.Context) {
	var m struct {
		ConfigHash string `json:"config_hash"`
		CreatedAt  string `json:"created_at"`
		Tracks     []any  `json:"tracks"`
		Jingles    []any  `json:"jingles"`
	}
	if err := diskstate.ReadJSON(s.paths.ManifestPath, &m); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "manifest unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"config_hash":  m.ConfigHash,
		"created_at":   m.CreatedAt,
		"track_count":  len(m.Tracks),
		"jingle_count": len(m.Jingles),
	})
}
