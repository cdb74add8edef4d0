package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/meshcast/meshcast/internal/casclient"
)

type fakeProber struct {
	id  casclient.Identity
	err error
}

func (f *fakeProber) Identity(ctx context.Context) (casclient.Identity, error) {
	return f.id, f.err
}

func newTestServer(cas Prober) *Server {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return New(":0", Paths{}, "node1", cas, log)
}

func TestHealthOKWhenCASReachable(t *testing.T) {
	srv := newTestServer(&fakeProber{id: casclient.Identity{ID: "QmSelf"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	srv.http.Handler.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" || body["cas_id"] != "QmSelf" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHealthDegradedWhenCASUnreachable(t *testing.T) {
	srv := newTestServer(&fakeProber{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	srv.http.Handler.ServeHTTP(w, req)

	if w.Code != 503 {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
