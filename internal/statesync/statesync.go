// Package statesync implements the State Synchronizer (component E): a
// best-effort gossip layer over a content-addressed pub/sub topic that lets
// independent nodes converge on a common playback position.
//
// It runs three concurrent agents — subscriber, publisher, reaper — sharing
// an in-memory peer table and an on-disk state file, matching realization
// (b) of the concurrency design note: independent workers communicating
// through an owning actor's locked state rather than a single event loop.
package statesync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/meshcast/meshcast/internal/casclient"
	"github.com/meshcast/meshcast/internal/diskstate"
	"github.com/meshcast/meshcast/internal/multibase"
)

const (
	freshnessWindow = 300 * time.Second
	reapAge         = 600 * time.Second
	reapInterval    = 60 * time.Second
	publishInterval = 10 * time.Second
	resubscribeWait = 5 * time.Second
)

// PeerState is the inner JSON payload gossiped between nodes.
type PeerState struct {
	NodeID    string    `json:"node_id"`
	Position  int       `json:"position"`
	Track     string    `json:"track"`
	Timestamp time.Time `json:"timestamp"`
}

// peerEntry is PeerState plus local bookkeeping, held only in memory.
type peerEntry struct {
	state      PeerState
	receivedAt time.Time
}

// Subscriber is the subset of the CAS client the synchronizer depends on.
type Subscriber interface {
	PubSubSub(ctx context.Context, topic string) (<-chan casclient.PubSubMessage, <-chan error, error)
	PubSubPub(ctx context.Context, topic string, payload []byte) error
}

// Synchronizer runs the subscribe/converge/publish/reap activities.
type Synchronizer struct {
	cas   Subscriber
	topic string
	path  string // current_position.json
	log   *slog.Logger

	mu    sync.Mutex
	peers map[string]peerEntry

	lastPublished string
}

// New constructs a Synchronizer.
func New(cas Subscriber, topic, statePath string, log *slog.Logger) *Synchronizer {
	return &Synchronizer{cas: cas, topic: topic, path: statePath, log: log, peers: make(map[string]peerEntry)}
}

// Run starts the three agents (subscriber, publisher, reaper; convergence
// runs inside the subscriber) and blocks until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.runSubscriber(ctx) }()
	go func() { defer wg.Done(); s.runPublisher(ctx) }()
	go func() { defer wg.Done(); s.runReaper(ctx) }()
	wg.Wait()
}

// runSubscriber opens the long-lived subscription and resubscribes after
// any drop, per SubscribeDropped's policy: sleep 5s, retry unboundedly.
func (s *Synchronizer) runSubscriber(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		msgCh, errCh, err := s.cas.PubSubSub(ctx, s.topic)
		if err != nil {
			s.log.Warn("subscribe failed, retrying", "error", err)
			if !sleepOrDone(ctx, resubscribeWait) {
				return
			}
			continue
		}
		s.drain(ctx, msgCh)
		select {
		case err := <-errCh:
			s.log.Warn("subscription dropped, resubscribing", "error", err)
		default:
		}
		if !sleepOrDone(ctx, resubscribeWait) {
			return
		}
	}
}

func (s *Synchronizer) drain(ctx context.Context, msgCh <-chan casclient.PubSubMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

// handleMessage decodes one raw pub/sub message and, if valid, updates the
// peer table and re-evaluates convergence.
func (s *Synchronizer) handleMessage(msg casclient.PubSubMessage) {
	if !multibase.HasExpectedPrefix(msg.Data) {
		return // ignore messages lacking the expected multibase prefix
	}
	raw, err := multibase.DecodeTopic(msg.Data)
	if err != nil {
		s.log.Warn("PeerMessageDecodeFailure: multibase decode", "error", err)
		return
	}
	var ps PeerState
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		s.log.Warn("PeerMessageDecodeFailure: json decode", "error", err)
		return
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.peers[ps.NodeID] = peerEntry{state: ps, receivedAt: now}
	s.mu.Unlock()

	s.converge(now)
}

// converge selects the peer with the largest timestamp and, if it is fresh
// enough, overwrites the local state file.
func (s *Synchronizer) converge(now time.Time) {
	s.mu.Lock()
	var newest *PeerState
	for _, e := range s.peers {
		if newest == nil || e.state.Timestamp.After(newest.Timestamp) {
			st := e.state
			newest = &st
		}
	}
	s.mu.Unlock()

	if newest == nil {
		return
	}
	if now.Sub(newest.Timestamp) >= freshnessWindow {
		return
	}
	if err := diskstate.WriteJSON(s.path, newest); err != nil {
		s.log.Warn("failed to write current_position.json", "error", err)
	}
}

// runPublisher republishes the local state every 10s when it has changed
// since the last publish.
func (s *Synchronizer) runPublisher(ctx context.Context) {
	ticker := time.NewTicker(publishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishIfChanged(ctx)
		}
	}
}

func (s *Synchronizer) publishIfChanged(ctx context.Context) {
	var ps PeerState
	if err := diskstate.ReadJSON(s.path, &ps); err != nil {
		return // no local state yet
	}
	data, err := json.Marshal(&ps)
	if err != nil {
		s.log.Warn("failed to marshal local state", "error", err)
		return
	}
	if string(data) == s.lastPublished {
		return
	}
	if err := s.cas.PubSubPub(ctx, s.topic, data); err != nil {
		s.log.Warn("failed to publish local state", "error", err)
		return
	}
	s.lastPublished = string(data)
}

// runReaper drops stale peer entries every 60s.
func (s *Synchronizer) runReaper(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *Synchronizer) reap() {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for nid, e := range s.peers {
		if now.Sub(e.receivedAt) >= reapAge {
			delete(s.peers, nid)
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
